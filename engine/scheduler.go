package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// SchedulerOptions tunes the tick loop.
type SchedulerOptions struct {
	// Interval is the tick period. Default: 1s.
	Interval time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *SchedulerOptions) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// TickFunc is one scan pass over every surface.
type TickFunc func(ctx context.Context) TickResult

// Scheduler calls a TickFunc at a fixed interval until its context ends.
// Ticks run on the scheduler goroutine, so they never overlap; a slow tick
// delays the next one.
type Scheduler struct {
	tick TickFunc
	opts SchedulerOptions

	running    atomic.Bool
	ticks      atomic.Int64
	candidates atomic.Int64
	tickNs     atomic.Int64
}

// SchedulerStats are point-in-time counters.
type SchedulerStats struct {
	Running     bool          `json:"running"`
	Ticks       int64         `json:"ticks"`
	Candidates  int64         `json:"candidates"`
	AvgTickTime time.Duration `json:"avg_tick_time"`
}

// NewScheduler creates a Scheduler. Call Run to start the loop.
func NewScheduler(tick TickFunc, opts SchedulerOptions) *Scheduler {
	opts.defaults()
	return &Scheduler{tick: tick, opts: opts}
}

// Stats returns the current counters.
func (s *Scheduler) Stats() SchedulerStats {
	st := SchedulerStats{
		Running:    s.running.Load(),
		Ticks:      s.ticks.Load(),
		Candidates: s.candidates.Load(),
	}
	if st.Ticks > 0 {
		st.AvgTickTime = time.Duration(s.tickNs.Load() / st.Ticks)
	}
	return st
}

// Run blocks until ctx is cancelled, ticking every opts.Interval. The
// first tick fires one interval after Run starts.
func (s *Scheduler) Run(ctx context.Context) {
	log := s.opts.Logger

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.running.Store(true)
	defer s.running.Store(false)
	log.Info("engine: scheduler started", "interval", s.opts.Interval)

	for {
		select {
		case <-ctx.Done():
			log.Info("engine: scheduler stopped", "ticks", s.ticks.Load())
			return
		case <-ticker.C:
			start := time.Now()
			res := s.tick(ctx)
			s.ticks.Add(1)
			s.candidates.Add(int64(res.Candidates))
			s.tickNs.Add(int64(time.Since(start)))
			if res.Dispatched > 0 {
				log.Debug("engine: tick", "candidates", res.Candidates, "dispatched", res.Dispatched)
			}
		}
	}
}
