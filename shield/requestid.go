package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/flagwatch/idgen"
	"github.com/hazyhaar/flagwatch/kit"
)

var newRequestID = idgen.Prefixed("req_", idgen.Default)

// RequestID tags each request with an ID, echoed in X-Request-ID and
// stored under kit.RequestIDKey, and attaches a per-request logger. An
// incoming X-Request-ID is kept.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = newRequestID()
			}
			w.Header().Set("X-Request-ID", id)

			ctx := kit.WithRequestID(r.Context(), id)
			ctx = kit.WithTransport(ctx, "http")
			l := logger.With("request_id", id, "method", r.Method, "path", r.URL.Path)
			ctx = context.WithValue(ctx, LoggerKey, l)
			l.Debug("shield: request", "remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
