package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/invadmin/internal/auth"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if !s.Gate.Enabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, "login.html", s.page(w, r, "Sign in", ""))
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.Gate.Enabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	data := s.page(w, r, "Sign in", "")
	if username == "" || password == "" {
		data.Error = "Enter your username and password."
		s.Templates.RenderStatus(w, http.StatusBadRequest, "login.html", data)
		return
	}

	token, err := s.Gate.Login(username, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Error("failed to issue token", "error", err)
		}
		slog.Warn("failed login", "user", username)
		data.Error = "Invalid username or password."
		s.Templates.RenderStatus(w, http.StatusUnauthorized, "login.html", data)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(auth.TokenExpiry.Seconds()),
	})

	slog.Info("admin logged in", "user", username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
