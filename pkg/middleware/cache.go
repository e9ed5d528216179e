package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl sets Cache-Control on responses. A positive maxAge marks GET
// responses as publicly cacheable and leaves other methods alone; a
// non-positive maxAge marks every response as no-store.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	value := "no-store"
	if maxAge > 0 {
		value = fmt.Sprintf("public, max-age=%d", maxAge)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge <= 0 || r.Method == http.MethodGet {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
