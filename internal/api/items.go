package api

import "net/http"

// ItemsHandler proxies the item endpoints.
type ItemsHandler struct {
	Proxy *Proxy
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.Proxy.forward(w, r, route{name: "items.list", path: "/api/items", failure: "Failed to fetch items"})
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.Proxy.forward(w, r, route{name: "items.create", path: "/api/items", created: true, failure: "Failed to create item"})
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.Proxy.forward(w, r, route{name: "items.get", path: idPath(r, "/api/items"), failure: "Failed to fetch item"})
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.Proxy.forward(w, r, route{name: "items.update", path: idPath(r, "/api/items"), failure: "Failed to update item"})
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.Proxy.forward(w, r, route{name: "items.delete", path: idPath(r, "/api/items"), failure: "Failed to delete item"})
}
