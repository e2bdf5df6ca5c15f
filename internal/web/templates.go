package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/erazemk/invadmin/internal/auth"
	"github.com/erazemk/invadmin/internal/builder"
	"github.com/erazemk/invadmin/internal/client"
	"github.com/erazemk/invadmin/internal/model"
	webembed "github.com/erazemk/invadmin/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"editable": func(s model.OrderStatus) bool { return s.Editable() },
		"statusClass": func(s model.OrderStatus) string {
			switch s {
			case model.OrderStatusSaved:
				return "status-saved"
			case model.OrderStatusPurchased:
				return "status-purchased"
			case model.OrderStatusHeld:
				return "status-held"
			default:
				return "status-unknown"
			}
		},
		"orderTotal": func(o model.Order) int { return model.TotalQuantity(o.Items) },
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"home.html",
		"items.html",
		"item_form.html",
		"item_delete.html",
		"orders.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with an explicit status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title       string
	Active      string
	Version     string
	User        string
	AuthEnabled bool
	CSRFField   template.HTML
	Flashes     []Flash
	Error       string
}

// Server holds all dependencies for page handlers.
type Server struct {
	Client       *client.Client
	Builders     *builder.Registry
	Sessions     sessions.Store
	Templates    *Templates
	Gate         *auth.Gate
	Version      string
	CookieSecure bool
}
