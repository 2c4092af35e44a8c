// Package shield provides the HTTP middleware in front of the flagwatch
// status server: method filtering, security headers and request IDs.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.StatusStack(logger) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// StatusStack returns the middleware stack for the read-only status API.
// Order: ReadOnly, SecurityHeaders, RequestID.
func StatusStack(logger *slog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		ReadOnly,
		SecurityHeaders(DefaultHeaders()),
		RequestID(logger),
	}
}
