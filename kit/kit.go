// Package kit holds the transport-agnostic endpoint shape shared by the
// MCP tools and their middleware.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint is a single request/response operation independent of transport.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Logging logs every call at debug level and failures at warn level.
func Logging(logger *slog.Logger, name string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				logger.Warn("kit: endpoint failed", "endpoint", name,
					"transport", GetTransport(ctx), "error", err)
				return resp, err
			}
			logger.Debug("kit: endpoint", "endpoint", name,
				"transport", GetTransport(ctx), "duration", time.Since(start))
			return resp, nil
		}
	}
}
