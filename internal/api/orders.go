package api

import (
	"net/http"
	"net/url"
	"strconv"
)

// OrdersHandler proxies the order endpoints.
type OrdersHandler struct {
	Proxy *Proxy
}

// List handles GET /api/orders.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	h.Proxy.forward(w, r, route{name: "orders.list", path: "/api/orders", failure: "Failed to fetch orders"})
}

// Create handles POST /api/orders.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.Proxy.forward(w, r, route{name: "orders.create", path: "/api/orders", created: true, failure: "Failed to create order"})
}

// Get handles GET /api/orders/{id}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.Proxy.forward(w, r, route{name: "orders.get", path: idPath(r, "/api/orders"), failure: "Failed to fetch order"})
}

// Update handles PUT /api/orders/{id}.
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.Proxy.forward(w, r, route{name: "orders.update", path: idPath(r, "/api/orders"), failure: "Failed to update order"})
}

// Purchase handles POST /api/orders/{id}/purchase. Only virtual=false turns
// the flag off; the backend always receives it explicitly.
func (h *OrdersHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	virtual := r.URL.Query().Get("virtual") != "false"
	h.Proxy.forward(w, r, route{
		name:    "orders.purchase",
		path:    idPath(r, "/api/orders") + "/purchase",
		query:   url.Values{"virtual": {strconv.FormatBool(virtual)}},
		failure: "Failed to purchase order",
	})
}
