package web

import "net/http"

// Home handles GET /.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "home.html", s.page(w, r, "Inventory Admin", "home"))
}
