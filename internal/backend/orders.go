package backend

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/invadmin/internal/model"
	"github.com/erazemk/invadmin/internal/store"
)

// OrdersHandler handles order endpoints.
type OrdersHandler struct {
	DB *sql.DB
}

// List handles GET /api/orders.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := store.ListOrders(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "failed to list orders")
		return
	}
	jsonResponse(w, http.StatusOK, orders)
}

// Create handles POST /api/orders.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := store.CreateOrder(r.Context(), h.DB, req)
	if err != nil {
		storeError(w, err, "failed to create order")
		return
	}
	jsonResponse(w, http.StatusCreated, order)
}

// Get handles GET /api/orders/{id}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get order")
		return
	}
	if order == nil {
		jsonError(w, http.StatusNotFound, "order not found")
		return
	}
	jsonResponse(w, http.StatusOK, order)
}

// Update handles PUT /api/orders/{id}. Only SAVED orders can be updated.
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req model.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := store.UpdateOrder(r.Context(), h.DB, id, req)
	if err != nil {
		storeError(w, err, "failed to update order")
		return
	}
	jsonResponse(w, http.StatusOK, order)
}

// Purchase handles POST /api/orders/{id}/purchase?virtual=<bool>. A missing
// flag means true.
func (h *OrdersHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	virtual := true
	if v := r.URL.Query().Get("virtual"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid virtual flag")
			return
		}
		virtual = b
	}

	order, err := store.PurchaseOrder(r.Context(), h.DB, id, virtual)
	if err != nil {
		storeError(w, err, "failed to purchase order")
		return
	}
	jsonResponse(w, http.StatusOK, order)
}
