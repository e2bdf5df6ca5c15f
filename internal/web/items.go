package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/invadmin/internal/model"
)

// Item manager messages.
const (
	MsgLoadItems  = "Failed to load items. Make sure the backend API is running."
	MsgLoadItem   = "Failed to load item."
	MsgSaveItem   = "Failed to save item"
	MsgDeleteItem = "Failed to delete item"
)

// itemForm is the create/edit form state.
type itemForm struct {
	ID       int64
	Name     string
	Quantity string
}

func (f itemForm) Editing() bool { return f.ID != 0 }

// ItemsPage handles GET /items.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(w, r, "Inventory Items", "items")

	items, err := s.Client.ListItems(r.Context())
	if err != nil {
		slog.Error("failed to list items", "error", err)
		data.Error = MsgLoadItems
	}

	s.Templates.Render(w, "items.html", &struct {
		PageData
		Items []model.Item
	}{
		PageData: data,
		Items:    items,
	})
}

// ItemNewPage handles GET /items/new.
func (s *Server) ItemNewPage(w http.ResponseWriter, r *http.Request) {
	s.renderItemForm(w, r, http.StatusOK, itemForm{Quantity: "0"}, "")
}

// ItemEditPage handles GET /items/{id}/edit.
func (s *Server) ItemEditPage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	s.renderItemForm(w, r, http.StatusOK, itemForm{
		ID:       item.ItemID(),
		Name:     item.Name,
		Quantity: strconv.Itoa(item.Quantity),
	}, "")
}

// ItemSubmit handles POST /items. A form without an id creates an item;
// with an id it updates that item.
func (s *Server) ItemSubmit(w http.ResponseWriter, r *http.Request) {
	form := itemForm{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Quantity: strings.TrimSpace(r.FormValue("quantity")),
	}
	if raw := r.FormValue("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		form.ID = id
	}

	if form.Name == "" {
		s.renderItemForm(w, r, http.StatusUnprocessableEntity, form, "Name is required.")
		return
	}
	quantity, err := strconv.Atoi(form.Quantity)
	if err != nil || quantity < 0 {
		s.renderItemForm(w, r, http.StatusUnprocessableEntity, form, "Quantity must be a whole number of at least 0.")
		return
	}

	item := model.Item{Name: form.Name, Quantity: quantity}
	if form.Editing() {
		item.ID = model.ID(form.ID)
		_, err = s.Client.UpdateItem(r.Context(), form.ID, item)
	} else {
		_, err = s.Client.CreateItem(r.Context(), item)
	}
	if err != nil {
		slog.Error("failed to save item", "error", err, "item", form.ID)
		s.renderItemForm(w, r, http.StatusBadGateway, form, MsgSaveItem)
		return
	}

	slog.Info("item saved", "item", form.ID, "name", form.Name, "user", webUser(r.Context()))
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// ItemDeletePage handles GET /items/{id}/delete.
func (s *Server) ItemDeletePage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	s.Templates.Render(w, "item_delete.html", &struct {
		PageData
		Item *model.Item
	}{
		PageData: s.page(w, r, "Delete "+item.Name, "items"),
		Item:     item,
	})
}

// ItemDeleteSubmit handles POST /items/{id}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := s.Client.DeleteItem(r.Context(), id); err != nil {
		slog.Error("failed to delete item", "error", err, "item", id)
		s.addFlash(w, r, "error", MsgDeleteItem)
	} else {
		slog.Info("item deleted", "item", id, "user", webUser(r.Context()))
	}
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// loadItem fetches the {id} item. On failure it has already responded.
func (s *Server) loadItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return nil, false
	}

	item, err := s.Client.GetItem(r.Context(), id)
	if err != nil {
		slog.Error("failed to get item", "error", err, "item", id)
		s.addFlash(w, r, "error", MsgLoadItem)
		http.Redirect(w, r, "/items", http.StatusSeeOther)
		return nil, false
	}
	return item, true
}

func (s *Server) renderItemForm(w http.ResponseWriter, r *http.Request, status int, form itemForm, errMsg string) {
	title := "New Item"
	if form.Editing() {
		title = "Edit Item"
	}
	data := s.page(w, r, title, "items")
	data.Error = errMsg

	s.Templates.RenderStatus(w, status, "item_form.html", &struct {
		PageData
		Form itemForm
	}{
		PageData: data,
		Form:     form,
	})
}
