// Package flagwatch marks handles on a live social-media page when their
// SHA-256 fingerprint appears on a published block-list.
//
// The Watcher drives a Chrome tab over CDP and runs the annotation engine
// against it until cancelled. Annotate runs one pass over a saved page
// offline. Service answers membership and status questions for the MCP
// tools and the status API.
package flagwatch

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/flagwatch/blocklist"
	"github.com/hazyhaar/flagwatch/engine"
	"github.com/hazyhaar/flagwatch/identity"
	"github.com/hazyhaar/flagwatch/sink"
)

// ErrNoHistory is returned by Recent when no sqlite sink is in use.
var ErrNoHistory = errors.New("flagwatch: no sqlite sink configured")

// Service holds the session's membership set and, once started, its
// engine. Safe for concurrent use.
type Service struct {
	source  string
	started time.Time
	set     atomic.Pointer[blocklist.Set]
	eng     atomic.Pointer[engine.Engine]

	// Set by UseSinks before the Service is shared.
	router   *sink.Router
	webhooks []*sink.Webhook
	history  *sink.SQLite
}

// NewService creates a Service over set, loaded from source.
func NewService(source string, set *blocklist.Set) *Service {
	s := &Service{source: source, started: time.Now()}
	if set == nil {
		set = blocklist.Empty()
	}
	s.set.Store(set)
	return s
}

// Set returns the membership set.
func (s *Service) Set() *blocklist.Set { return s.set.Load() }

func (s *Service) attach(e *engine.Engine) { s.eng.Store(e) }

// UseSinks makes Status report r's counters and those of every webhook
// among sinks. The first sqlite sink among sinks backs Recent. r may be
// nil. Call it before the Service is shared.
func (s *Service) UseSinks(r *sink.Router, sinks ...sink.Sink) {
	s.router = r
	for _, sk := range sinks {
		switch v := sk.(type) {
		case *sink.Webhook:
			s.webhooks = append(s.webhooks, v)
		case *sink.SQLite:
			if s.history == nil {
				s.history = v
			}
		}
	}
}

// Status is a point-in-time view of the session.
type Status struct {
	Source  string        `json:"source"`
	SetSize int           `json:"set_size"`
	Uptime  string        `json:"uptime"`
	Engine  *engine.Stats `json:"engine,omitempty"`
	Sinks   *SinkStatus   `json:"sinks,omitempty"`
}

// SinkStatus reports event delivery.
type SinkStatus struct {
	Count    int                 `json:"count"`
	Routed   sink.RouterStats    `json:"routed"`
	Webhooks []sink.WebhookStats `json:"webhooks,omitempty"`
}

// Status reports the set and, when an engine runs, its counters.
func (s *Service) Status() Status {
	st := Status{
		Source:  s.source,
		SetSize: s.Set().Len(),
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}
	if e := s.eng.Load(); e != nil {
		es := e.Stats()
		st.Engine = &es
	}
	if s.router != nil {
		ss := &SinkStatus{Count: s.router.Len(), Routed: s.router.Stats()}
		for _, w := range s.webhooks {
			ss.Webhooks = append(ss.Webhooks, w.Stats())
		}
		st.Sinks = ss
	}
	return st
}

// History is what the sqlite sink has recorded.
type History struct {
	Counts map[string]int64 `json:"counts"`
	Events []sink.Event     `json:"events"`
}

// Recent returns per-surface totals and up to limit of the newest events.
func (s *Service) Recent(ctx context.Context, limit int) (History, error) {
	if s.history == nil {
		return History{}, ErrNoHistory
	}
	counts, err := s.history.CountBySurface(ctx)
	if err != nil {
		return History{}, err
	}
	events, err := s.history.Recent(ctx, limit)
	if err != nil {
		return History{}, err
	}
	return History{Counts: counts, Events: events}, nil
}

// CheckResult is the membership answer for one handle.
type CheckResult struct {
	Input       string               `json:"input"`
	Identity    identity.Identity    `json:"identity,omitempty"`
	Fingerprint identity.Fingerprint `json:"fingerprint,omitempty"`
	Listed      bool                 `json:"listed"`
	Error       string               `json:"error,omitempty"`
}

// Check answers for each handle. Handles may be given as "@name",
// "/name" or "name".
func (s *Service) Check(handles ...string) []CheckResult {
	set := s.Set()
	out := make([]CheckResult, 0, len(handles))
	for _, h := range handles {
		r := CheckResult{Input: h}
		id, err := ParseHandle(h)
		if err != nil {
			r.Error = err.Error()
			out = append(out, r)
			continue
		}
		r.Identity = id
		r.Fingerprint = identity.Of(id)
		r.Listed = set.Has(r.Fingerprint)
		out = append(out, r)
	}
	return out
}

// ParseHandle normalises a handle typed by a person.
func ParseHandle(h string) (identity.Identity, error) {
	h = strings.TrimSpace(h)
	switch {
	case strings.HasPrefix(h, identity.Marker):
		return identity.FromText(h)
	case strings.HasPrefix(h, "/"):
		return identity.FromProfilePath(h)
	default:
		return identity.FromProfilePath("/" + h)
	}
}
