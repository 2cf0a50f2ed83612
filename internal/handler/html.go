package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"antpi/internal/config"
)

// DynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func DynamicHTMLHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}
		name := strings.TrimPrefix(path, "/")
		if name == "" || strings.ContainsAny(name, "/\\") || strings.HasPrefix(name, ".") {
			http.NotFound(w, r)
			return
		}

		serveStaticPage(w, r, filepath.Join(cfg.StaticDirectory, name+".html"))
	}
}

func serveStaticPage(w http.ResponseWriter, r *http.Request, filePath string) {
	if info, err := os.Stat(filePath); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filePath)
}
