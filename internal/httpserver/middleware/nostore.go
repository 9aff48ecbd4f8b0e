package middleware

import "net/http"

// NoStore creates a middleware that forbids response caching. The chat UI is
// served alongside the API and stale assets or cached API responses confuse
// it during development.
func NoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
			next.ServeHTTP(w, r)
		})
	}
}
