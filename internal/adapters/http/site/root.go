// Package site serves the embedded operator dashboard.
package site

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register mounts the embedded dashboard at the root path. It is registered
// last so API routes take precedence over the catch-all.
func Register(r chi.Router) {
	files := http.FileServer(FS())
	r.Handle("/*", files)
}
