package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation id, caller and
// trace ids in the request context, retrievable with logger.FromContext.
// Mount it after RequestLogging and Tracing. Routes behind Auth should mount
// it again after Auth so the caller fields are present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
