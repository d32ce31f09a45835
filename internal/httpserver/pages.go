package httpserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"studentinfo/sis-console/internal/guard"
)

type pageDescriptor struct {
	Route *guard.Route      `json:"route,omitempty"`
	Title string            `json:"title"`
	Menu  []guard.MenuGroup `json:"menu"`
}

// pageHandler runs every page GET through the navigation guard. Static files
// of the frontend bundle bypass the guard; allowed routes get the SPA shell,
// or a JSON page descriptor when no bundle is deployed.
func pageHandler(deps Deps) http.HandlerFunc {
	distDir := strings.TrimSpace(deps.FrontendDistDir)
	indexPath := ""
	if distDir != "" {
		candidate := filepath.Join(distDir, "index.html")
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			indexPath = candidate
		}
	}
	var fileServer http.Handler
	if indexPath != "" {
		fileServer = http.FileServer(http.Dir(distDir))
	}

	return func(w http.ResponseWriter, r *http.Request) {
		cleanPath := path.Clean("/" + r.URL.Path)
		if fileServer != nil && cleanPath != "/" {
			full := filepath.Join(distDir, filepath.FromSlash(strings.TrimPrefix(cleanPath, "/")))
			if st, err := os.Stat(full); err == nil && !st.IsDir() {
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		if deps.Guard == nil {
			writeFailure(w, http.StatusServiceUnavailable, "navigation guard unavailable", 0)
			return
		}
		d := deps.Guard.Evaluate(r.Context(), r.URL.RequestURI())
		if d.Redirected() {
			http.Redirect(w, r, d.Location, http.StatusFound)
			return
		}

		if indexPath != "" {
			http.ServeFile(w, r, indexPath)
			return
		}
		menu := []guard.MenuGroup{}
		if deps.Session != nil {
			menu = guard.AccessibleMenus(deps.Guard.Table().Routes(), deps.Session)
		}
		writeJSON(w, http.StatusOK, pageDescriptor{Route: d.Route, Title: d.Title, Menu: menu})
	}
}
