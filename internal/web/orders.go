package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/invadmin/internal/builder"
)

// Orders page messages.
const (
	MsgBusy             = "Please wait for the current submission to finish."
	MsgAlreadyPurchased = "This order has already been purchased."
	MsgInvalidQuantity  = "Quantity must be a whole number."
)

// builder returns the order builder of the requesting browser session,
// creating it on first use.
func (s *Server) builder(r *http.Request) *builder.Builder {
	return s.Builders.Get(sessionID(r.Context()))
}

// backToOrders finishes every orders form post.
func backToOrders(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

// OrdersPage handles GET /orders. Items and orders are reloaded on every
// render; failures are reported by the builder. A session that never
// changed a draft is rendered from a throwaway builder.
func (s *Server) OrdersPage(w http.ResponseWriter, r *http.Request) {
	b, ok := s.Builders.Lookup(sessionID(r.Context()))
	if !ok {
		b = s.Builders.Detached()
		defer b.Close()
	}

	var g errgroup.Group
	g.Go(func() error { return b.LoadItems(r.Context()) })
	g.Go(func() error { return b.LoadOrders(r.Context()) })
	g.Wait()

	s.Templates.Render(w, "orders.html", &struct {
		PageData
		Snap builder.Snapshot
	}{
		PageData: s.page(w, r, "Orders", "orders"),
		Snap:     b.Snapshot(),
	})
}

// OrdersRefresh handles POST /orders/refresh.
func (s *Server) OrdersRefresh(w http.ResponseWriter, r *http.Request) {
	backToOrders(w, r)
}

// DraftAddItem handles POST /orders/draft/items.
func (s *Server) DraftAddItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.FormValue("itemId"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	s.mutated(w, r, s.builder(r).AddItem(id))
}

// DraftSetQuantity handles POST /orders/draft/items/{itemId}/quantity.
func (s *Server) DraftSetQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathItemID(w, r)
	if !ok {
		return
	}
	q, err := strconv.Atoi(r.FormValue("quantity"))
	if err != nil {
		s.addFlash(w, r, "error", MsgInvalidQuantity)
		backToOrders(w, r)
		return
	}
	s.mutated(w, r, s.builder(r).SetQuantity(id, q))
}

// DraftRemoveItem handles POST /orders/draft/items/{itemId}/remove.
func (s *Server) DraftRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathItemID(w, r)
	if !ok {
		return
	}
	s.mutated(w, r, s.builder(r).RemoveItem(id))
}

// DraftSetAddress handles POST /orders/draft/address.
func (s *Server) DraftSetAddress(w http.ResponseWriter, r *http.Request) {
	s.mutated(w, r, s.builder(r).SetDeliveryAddress(r.FormValue("deliveryAddress")))
}

// DraftReset handles POST /orders/draft/reset.
func (s *Server) DraftReset(w http.ResponseWriter, r *http.Request) {
	s.mutated(w, r, s.builder(r).Reset())
}

// DraftSubmit handles POST /orders/draft/submit. The address field is part
// of the submit form so an edited address is never lost.
func (s *Server) DraftSubmit(w http.ResponseWriter, r *http.Request) {
	b := s.builder(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if addr, ok := r.PostForm["deliveryAddress"]; ok {
		if err := b.SetDeliveryAddress(addr[0]); err != nil {
			s.mutated(w, r, err)
			return
		}
	}

	// The save completes even if the browser goes away.
	ctx := context.WithoutCancel(r.Context())
	err := b.Submit(ctx)
	if errors.Is(err, builder.ErrBusy) {
		s.addFlash(w, r, "error", MsgBusy)
	}
	// Validation and backend failures are shown through the builder's error.
	backToOrders(w, r)
}

// OrderSelect handles POST /orders/{id}/select.
func (s *Server) OrderSelect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathOrderID(w, r)
	if !ok {
		return
	}
	s.builder(r).SelectOrder(r.Context(), id)
	backToOrders(w, r)
}

// OrderEdit handles POST /orders/{id}/edit. The order is fetched first so
// the edit starts from the backend's current state.
func (s *Server) OrderEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathOrderID(w, r)
	if !ok {
		return
	}
	b := s.builder(r)
	if err := b.SelectOrder(r.Context(), id); err != nil {
		backToOrders(w, r)
		return
	}
	if err := b.BeginEditSelected(); err != nil {
		s.mutated(w, r, err)
		return
	}
	backToOrders(w, r)
}

// OrderPurchase handles POST /orders/{id}/purchase.
func (s *Server) OrderPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathOrderID(w, r)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	if err := s.builder(r).Purchase(ctx, id); err != nil {
		switch {
		case errors.Is(err, builder.ErrBusy):
			s.addFlash(w, r, "error", MsgBusy)
		case errors.Is(err, builder.ErrNotEditable):
			s.addFlash(w, r, "error", MsgAlreadyPurchased)
		}
	}
	backToOrders(w, r)
}

// mutated reports a draft mutation result and returns to the orders page.
func (s *Server) mutated(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, builder.ErrBusy):
		s.addFlash(w, r, "error", MsgBusy)
	case errors.Is(err, builder.ErrNotEditable):
		s.addFlash(w, r, "error", builder.MsgNotEditable)
	}
	backToOrders(w, r)
}

func pathItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("itemId"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func pathOrderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
