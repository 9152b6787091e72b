package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers the popup page and its form actions on mux.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/popup", http.StatusFound)
	})
	mux.HandleFunc("GET /popup", h.Popup)
	mux.HandleFunc("POST /popup/unignore", h.Unignore)
	mux.HandleFunc("POST /popup/light/remove", h.RemoveLightIgnore)
	mux.HandleFunc("POST /popup/reset", h.Reset)
	mux.HandleFunc("GET /popup/export", h.Export)
	mux.HandleFunc("POST /popup/import", h.Import)
}
