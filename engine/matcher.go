// CLAUDE:SUMMARY Bounded job queue and fixed worker pool: fingerprint each candidate, test membership, hand hits to the Annotator.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/flagwatch/blocklist"
	"github.com/hazyhaar/flagwatch/identity"
	"github.com/hazyhaar/flagwatch/surface"
)

// ErrClosed is returned when submitting to a closed Matcher.
var ErrClosed = errors.New("engine: matcher closed")

// Hasher fingerprints an identity. It runs on worker goroutines and may
// block; the candidate's node can be removed from the tree meanwhile.
type Hasher func(ctx context.Context, id identity.Identity) (identity.Fingerprint, error)

// SHA256 is the default Hasher.
func SHA256(_ context.Context, id identity.Identity) (identity.Fingerprint, error) {
	return identity.Of(id), nil
}

// MatcherOptions tunes the worker pool.
type MatcherOptions struct {
	// Workers is the number of concurrent jobs. Default: 4.
	Workers int
	// QueueSize bounds pending jobs; Dispatch blocks when full. Default: 256.
	QueueSize int
	// Hasher overrides SHA256.
	Hasher Hasher
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *MatcherOptions) defaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Hasher == nil {
		o.Hasher = SHA256
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

type job struct {
	ctx context.Context
	c   surface.Candidate
}

// Matcher runs match jobs. Jobs are independent and complete in no
// particular order.
type Matcher struct {
	set  *blocklist.Set
	ann  *Annotator
	opts MatcherOptions

	jobs     chan job
	inflight sync.WaitGroup
	workers  sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	dispatched atomic.Int64
	matched    atomic.Int64
	misses     atomic.Int64
	hashErrors atomic.Int64
}

// MatcherStats are point-in-time counters.
type MatcherStats struct {
	Dispatched int64 `json:"dispatched"`
	Matched    int64 `json:"matched"`
	Misses     int64 `json:"misses"`
	HashErrors int64 `json:"hash_errors"`
	Pending    int   `json:"pending"`
}

// NewMatcher starts the worker pool. Close stops it.
func NewMatcher(set *blocklist.Set, ann *Annotator, opts MatcherOptions) *Matcher {
	opts.defaults()
	m := &Matcher{
		set:  set,
		ann:  ann,
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	m.workers.Add(opts.Workers)
	for range opts.Workers {
		go m.work()
	}
	return m
}

// Dispatch queues c. It has the surface.Dispatch signature. A job dropped
// because ctx ended or the matcher closed is logged and forgotten; the
// node stays marked.
func (m *Matcher) Dispatch(ctx context.Context, c surface.Candidate) {
	if err := m.Submit(ctx, c); err != nil {
		m.opts.Logger.Debug("engine: job dropped", "surface", c.Surface.Kind, "error", err)
	}
}

// Submit queues c, blocking while the queue is full.
func (m *Matcher) Submit(ctx context.Context, c surface.Candidate) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	m.inflight.Add(1)
	select {
	case m.jobs <- job{ctx: ctx, c: c}:
		m.dispatched.Add(1)
		return nil
	case <-ctx.Done():
		m.inflight.Done()
		return ctx.Err()
	}
}

// Drain waits until every submitted job has finished. It must not run
// concurrently with Submit.
func (m *Matcher) Drain() { m.inflight.Wait() }

// Close stops accepting jobs, finishes the queued ones and stops the
// workers.
func (m *Matcher) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.jobs)
	m.mu.Unlock()
	m.workers.Wait()
}

// Stats returns the current counters.
func (m *Matcher) Stats() MatcherStats {
	return MatcherStats{
		Dispatched: m.dispatched.Load(),
		Matched:    m.matched.Load(),
		Misses:     m.misses.Load(),
		HashErrors: m.hashErrors.Load(),
		Pending:    len(m.jobs),
	}
}

func (m *Matcher) work() {
	defer m.workers.Done()
	for j := range m.jobs {
		m.run(j)
		m.inflight.Done()
	}
}

func (m *Matcher) run(j job) {
	log := m.opts.Logger
	kind := j.c.Surface.Kind

	fp, err := m.opts.Hasher(j.ctx, j.c.Identity)
	if err != nil {
		m.hashErrors.Add(1)
		log.Debug("engine: fingerprint failed", "surface", kind, "error", err)
		return
	}
	if !m.set.Has(fp) {
		m.misses.Add(1)
		return
	}
	m.matched.Add(1)

	out, err := m.ann.Annotate(j.ctx, j.c, fp)
	if err != nil {
		log.Warn("engine: annotation failed", "surface", kind, "error", err)
		return
	}
	log.Debug("engine: match", "surface", kind, "outcome", out.String())
}
