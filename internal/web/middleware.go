package web

import (
	"context"
	"encoding/gob"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/erazemk/invadmin/internal/auth"
)

const (
	sessionName  = "invadmin"
	sessionIDKey = "sid"
)

type webContextKey string

const (
	webSessionKey webContextKey = "websession"
	webUserKey    webContextKey = "webuser"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

func init() {
	gob.Register(Flash{})
}

// newSessionStore returns the cookie store holding session ids and flashes.
func newSessionStore(key []byte, secure bool, maxAge int) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionMiddleware assigns every browser a session id. The id keys the
// browser's order builder.
func (s *Server) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.Sessions.Get(r, sessionName)
		if err != nil {
			slog.Warn("discarding unreadable session", "error", err)
		}

		id, _ := sess.Values[sessionIDKey].(string)
		if id == "" {
			id = uuid.NewString()
			sess.Values[sessionIDKey] = id
			if err := sess.Save(r, w); err != nil {
				slog.Error("failed to save session", "error", err)
			}
		}

		ctx := context.WithValue(r.Context(), webSessionKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CookieAuthMiddleware validates the admin token cookie when the gate is
// enabled and redirects to the login page otherwise.
func (s *Server) CookieAuthMiddleware(next http.Handler) http.Handler {
	if !s.Gate.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.CookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		claims, err := s.Gate.Check(cookie.Value)
		if err != nil {
			s.clearAuthCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), webUserKey, claims.Username())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// csrfMiddleware enables CSRF protection when a key is configured.
func csrfMiddleware(key []byte, secure bool) func(http.Handler) http.Handler {
	if len(key) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		if secure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// clearAuthCookie clears the authentication cookie with consistent attributes.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// sessionID returns the browser session id from the context.
func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(webSessionKey).(string)
	return id
}

// webUser returns the logged-in admin, if any.
func webUser(ctx context.Context) string {
	user, _ := ctx.Value(webUserKey).(string)
	return user
}

// addFlash queues a message for the next rendered page.
func (s *Server) addFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	sess, _ := s.Sessions.Get(r, sessionName)
	sess.AddFlash(Flash{Kind: kind, Message: message})
	if err := sess.Save(r, w); err != nil {
		slog.Error("failed to save flash", "error", err)
	}
}

// takeFlashes returns and clears queued messages.
func (s *Server) takeFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	sess, _ := s.Sessions.Get(r, sessionName)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		slog.Error("failed to save session", "error", err)
	}
	var flashes []Flash
	for _, f := range raw {
		if fm, ok := f.(Flash); ok {
			flashes = append(flashes, fm)
		}
	}
	return flashes
}

// page builds the base page data and consumes pending flashes. It must be
// called before anything is written to w.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title, active string) PageData {
	return PageData{
		Title:       title,
		Active:      active,
		Version:     s.Version,
		User:        webUser(r.Context()),
		AuthEnabled: s.Gate.Enabled(),
		CSRFField:   csrf.TemplateField(r),
		Flashes:     s.takeFlashes(w, r),
	}
}
