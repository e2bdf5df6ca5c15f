package web

import (
	"errors"
	"net/http"

	"github.com/erazemk/invadmin/internal/auth"
	"github.com/erazemk/invadmin/internal/builder"
	"github.com/erazemk/invadmin/internal/client"
	webembed "github.com/erazemk/invadmin/web"
)

// Options configures the page router.
type Options struct {
	Client       *client.Client
	Builders     *builder.Registry
	SessionKey   []byte
	CSRFKey      []byte // nil disables CSRF protection
	CookieSecure bool
	Gate         *auth.Gate
	Version      string
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Client == nil || opts.Builders == nil {
		return nil, errors.New("web router needs a backend client and a builder registry")
	}
	if len(opts.SessionKey) == 0 {
		return nil, errors.New("web router needs a session key")
	}

	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Client:       opts.Client,
		Builders:     opts.Builders,
		Sessions:     newSessionStore(opts.SessionKey, opts.CookieSecure, int(builder.DefaultSessionTTL.Seconds())),
		Templates:    templates,
		Gate:         opts.Gate,
		Version:      opts.Version,
		CookieSecure: opts.CookieSecure,
	}

	mux := http.NewServeMux()
	cookieAuth := s.CookieAuthMiddleware

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /{$}", cookieAuth(http.HandlerFunc(s.Home)))

	mux.Handle("GET /items", cookieAuth(http.HandlerFunc(s.ItemsPage)))
	mux.Handle("GET /items/new", cookieAuth(http.HandlerFunc(s.ItemNewPage)))
	mux.Handle("POST /items", cookieAuth(http.HandlerFunc(s.ItemSubmit)))
	mux.Handle("GET /items/{id}/edit", cookieAuth(http.HandlerFunc(s.ItemEditPage)))
	mux.Handle("GET /items/{id}/delete", cookieAuth(http.HandlerFunc(s.ItemDeletePage)))
	mux.Handle("POST /items/{id}/delete", cookieAuth(http.HandlerFunc(s.ItemDeleteSubmit)))

	mux.Handle("GET /orders", cookieAuth(http.HandlerFunc(s.OrdersPage)))
	mux.Handle("POST /orders/refresh", cookieAuth(http.HandlerFunc(s.OrdersRefresh)))
	mux.Handle("POST /orders/draft/items", cookieAuth(http.HandlerFunc(s.DraftAddItem)))
	mux.Handle("POST /orders/draft/items/{itemId}/quantity", cookieAuth(http.HandlerFunc(s.DraftSetQuantity)))
	mux.Handle("POST /orders/draft/items/{itemId}/remove", cookieAuth(http.HandlerFunc(s.DraftRemoveItem)))
	mux.Handle("POST /orders/draft/address", cookieAuth(http.HandlerFunc(s.DraftSetAddress)))
	mux.Handle("POST /orders/draft/reset", cookieAuth(http.HandlerFunc(s.DraftReset)))
	mux.Handle("POST /orders/draft/submit", cookieAuth(http.HandlerFunc(s.DraftSubmit)))
	mux.Handle("POST /orders/{id}/select", cookieAuth(http.HandlerFunc(s.OrderSelect)))
	mux.Handle("POST /orders/{id}/edit", cookieAuth(http.HandlerFunc(s.OrderEdit)))
	mux.Handle("POST /orders/{id}/purchase", cookieAuth(http.HandlerFunc(s.OrderPurchase)))

	return csrfMiddleware(opts.CSRFKey, opts.CookieSecure)(s.SessionMiddleware(mux)), nil
}
