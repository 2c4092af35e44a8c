// Package engine is the annotation engine: scanners feed candidates to a
// worker pool that fingerprints them against the block-list, hits go to
// the Annotator, and a Scheduler repeats the scan on a fixed tick.
//
// Usage:
//
//	e, err := engine.New(doc, set, engine.Options{Sink: sink.NewStdout(nil)})
//	go e.Run(ctx)
//
// Offline, one pass:
//
//	e.Tick(ctx)
//	e.Drain()
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/flagwatch/blocklist"
	"github.com/hazyhaar/flagwatch/dom"
	"github.com/hazyhaar/flagwatch/sink"
	"github.com/hazyhaar/flagwatch/surface"
)

// Options configures an Engine. Zero values take defaults.
type Options struct {
	Interval   time.Duration
	Workers    int
	QueueSize  int
	LedgerSize int
	Markup     surface.Markup
	Label      Label
	Hasher     Hasher
	Sink       sink.Sink
	PageURL    func() string
	Logger     *slog.Logger
}

// TickResult totals one pass over every surface.
type TickResult struct {
	surface.ScanResult
	Surfaces map[surface.Kind]surface.ScanResult `json:"surfaces"`
}

// Stats is a snapshot of every engine counter.
type Stats struct {
	SetSize   int                                 `json:"set_size"`
	Scheduler SchedulerStats                      `json:"scheduler"`
	Matcher   MatcherStats                        `json:"matcher"`
	Annotator AnnotatorStats                      `json:"annotator"`
	Surfaces  map[surface.Kind]surface.ScanResult `json:"surfaces"`
}

// Engine wires scanners, matcher, annotator and scheduler around one
// document and one membership set.
type Engine struct {
	doc       dom.Document
	set       *blocklist.Set
	scanners  []*surface.Scanner
	annotator *Annotator
	matcher   *Matcher
	sched     *Scheduler
	logger    *slog.Logger

	mu     sync.Mutex
	totals map[surface.Kind]surface.ScanResult
}

// New builds an engine over doc. set is fixed for the engine's lifetime;
// an empty set yields an engine that scans and marks but never annotates.
func New(doc dom.Document, set *blocklist.Set, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if set == nil {
		set = blocklist.Empty()
	}

	surfaces, err := surface.Surfaces(opts.Markup)
	if err != nil {
		return nil, err
	}
	scanners := make([]*surface.Scanner, 0, len(surfaces))
	for _, s := range surfaces {
		ledger, err := surface.NewLedger(opts.LedgerSize)
		if err != nil {
			return nil, err
		}
		sc, err := surface.NewScanner(s, ledger, opts.Logger)
		if err != nil {
			return nil, err
		}
		scanners = append(scanners, sc)
	}

	annOpts := []AnnotatorOption{
		WithLabel(opts.Label),
		WithAnnotatorLogger(opts.Logger),
	}
	if opts.Sink != nil {
		annOpts = append(annOpts, WithSink(opts.Sink))
	}
	if opts.PageURL != nil {
		annOpts = append(annOpts, WithPageURL(opts.PageURL))
	}
	ann := NewAnnotator(doc, annOpts...)

	e := &Engine{
		doc:       doc,
		set:       set,
		scanners:  scanners,
		annotator: ann,
		matcher: NewMatcher(set, ann, MatcherOptions{
			Workers:   opts.Workers,
			QueueSize: opts.QueueSize,
			Hasher:    opts.Hasher,
			Logger:    opts.Logger,
		}),
		logger: opts.Logger,
		totals: make(map[surface.Kind]surface.ScanResult),
	}
	e.sched = NewScheduler(e.Tick, SchedulerOptions{Interval: opts.Interval, Logger: opts.Logger})
	return e, nil
}

// Tick runs every scanner once. A scanner whose query fails is logged and
// skipped; the others still run.
func (e *Engine) Tick(ctx context.Context) TickResult {
	res := TickResult{Surfaces: make(map[surface.Kind]surface.ScanResult, len(e.scanners))}
	for _, sc := range e.scanners {
		kind := sc.Surface().Kind
		r, err := sc.Scan(ctx, e.doc, e.matcher.Dispatch)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			e.logger.Warn("engine: scan failed", "surface", kind, "error", err)
		}
		res.Surfaces[kind] = r
		res.Candidates += r.Candidates
		res.Dispatched += r.Dispatched
		res.Abandoned += r.Abandoned
	}

	e.mu.Lock()
	for kind, r := range res.Surfaces {
		t := e.totals[kind]
		t.Candidates += r.Candidates
		t.Dispatched += r.Dispatched
		t.Abandoned += r.Abandoned
		e.totals[kind] = t
	}
	e.mu.Unlock()
	return res
}

// Run ticks until ctx is cancelled, then finishes queued jobs and stops
// the workers.
func (e *Engine) Run(ctx context.Context) error {
	e.sched.Run(ctx)
	e.matcher.Close()
	return nil
}

// Drain waits for every dispatched job to finish. Call it between ticks,
// never concurrently with Run.
func (e *Engine) Drain() { e.matcher.Drain() }

// Close stops the worker pool. Jobs already queued still run.
func (e *Engine) Close() { e.matcher.Close() }

// Set returns the membership set.
func (e *Engine) Set() *blocklist.Set { return e.set }

// Stats returns a snapshot of every counter.
func (e *Engine) Stats() Stats {
	st := Stats{
		SetSize:   e.set.Len(),
		Scheduler: e.sched.Stats(),
		Matcher:   e.matcher.Stats(),
		Annotator: e.annotator.Stats(),
		Surfaces:  make(map[surface.Kind]surface.ScanResult, len(e.totals)),
	}
	e.mu.Lock()
	for k, v := range e.totals {
		st.Surfaces[k] = v
	}
	e.mu.Unlock()
	return st
}
