package storage

import (
	"log/slog"
	"net/http"
	"strings"
)

// RedirectHandler redirects GET requests for a file to its storage URL. It
// expects the route prefix to be stripped, e.g. with http.StripPrefix.
func RedirectHandler(s Storage) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" {
			http.NotFound(w, r)
			return
		}

		target, err := s.URL(r.Context(), name)
		if err != nil {
			slog.ErrorContext(r.Context(), "storage: failed to build url",
				"profile", s.Profile().Name, "name", name, "error", err)
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	})
}
