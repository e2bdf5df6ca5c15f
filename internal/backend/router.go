package backend

import (
	"database/sql"
	"net/http"
)

// NewRouter creates the backend router with all endpoints registered.
func NewRouter(db *sql.DB) http.Handler {
	mux := http.NewServeMux()

	itemsHandler := &ItemsHandler{DB: db}
	ordersHandler := &OrdersHandler{DB: db}

	// Items.
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("POST /api/items", itemsHandler.Create)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("PUT /api/items/{id}", itemsHandler.Update)
	mux.HandleFunc("DELETE /api/items/{id}", itemsHandler.Delete)

	// Orders.
	mux.HandleFunc("GET /api/orders", ordersHandler.List)
	mux.HandleFunc("POST /api/orders", ordersHandler.Create)
	mux.HandleFunc("GET /api/orders/{id}", ordersHandler.Get)
	mux.HandleFunc("PUT /api/orders/{id}", ordersHandler.Update)
	mux.HandleFunc("POST /api/orders/{id}/purchase", ordersHandler.Purchase)

	return mux
}
