package sink

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// Router fans each event out to every sink. A failing sink does not stop
// the others; all failures are joined into the returned error.
type Router struct {
	sinks  []Sink
	logger *slog.Logger

	events   atomic.Int64
	failures atomic.Int64
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Len returns the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) Send(ctx context.Context, ev Event) error {
	r.events.Add(1)
	var errs []error
	for i, s := range r.sinks {
		if err := s.Send(ctx, ev); err != nil {
			r.failures.Add(1)
			r.logger.Warn("sink: send failed", "sink", i, "surface", ev.Surface, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Router) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RouterStats counts routed events and per-sink failures.
type RouterStats struct {
	Events   int64 `json:"events"`
	Failures int64 `json:"failures"`
}

func (r *Router) Stats() RouterStats {
	return RouterStats{Events: r.events.Load(), Failures: r.failures.Load()}
}
