package api

import (
	"net/http"

	"github.com/erazemk/invadmin/internal/auth"
)

// NewRouter creates the proxy router with all endpoints registered.
func NewRouter(proxy *Proxy, gate *auth.Gate) http.Handler {
	mux := http.NewServeMux()

	itemsHandler := &ItemsHandler{Proxy: proxy}
	ordersHandler := &OrdersHandler{Proxy: proxy}

	authMW := AuthMiddleware(gate)

	// Items.
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))

	// Orders.
	mux.Handle("GET /api/orders", authMW(http.HandlerFunc(ordersHandler.List)))
	mux.Handle("POST /api/orders", authMW(http.HandlerFunc(ordersHandler.Create)))
	mux.Handle("GET /api/orders/{id}", authMW(http.HandlerFunc(ordersHandler.Get)))
	mux.Handle("PUT /api/orders/{id}", authMW(http.HandlerFunc(ordersHandler.Update)))
	mux.Handle("POST /api/orders/{id}/purchase", authMW(http.HandlerFunc(ordersHandler.Purchase)))

	return mux
}
