// CLAUDE:SUMMARY Applies the tint and inserts the label for a matched candidate, after re-checking attachment and the per-surface guard under a mutex.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/flagwatch/dom"
	"github.com/hazyhaar/flagwatch/identity"
	"github.com/hazyhaar/flagwatch/idgen"
	"github.com/hazyhaar/flagwatch/sink"
	"github.com/hazyhaar/flagwatch/surface"
)

// Label is the visual form of an annotation.
type Label struct {
	Text        string `yaml:"text" json:"text"`
	Color       string `yaml:"color" json:"color"`
	FontWeight  string `yaml:"font_weight" json:"font_weight"`
	PaddingLeft string `yaml:"padding_left" json:"padding_left"`
	// Tint is the background colour given to surfaces with a container.
	Tint string `yaml:"tint" json:"tint"`
}

// DefaultLabel is a red bold " BOT" with a pale red tint.
func DefaultLabel() Label {
	return Label{
		Text:        " BOT",
		Color:       "red",
		FontWeight:  "bold",
		PaddingLeft: "5px",
		Tint:        "#ffcccc",
	}
}

// WithDefaults fills empty fields from DefaultLabel.
func (l Label) WithDefaults() Label {
	d := DefaultLabel()
	if l.Text == "" {
		l.Text = d.Text
	}
	if l.Color == "" {
		l.Color = d.Color
	}
	if l.FontWeight == "" {
		l.FontWeight = d.FontWeight
	}
	if l.PaddingLeft == "" {
		l.PaddingLeft = d.PaddingLeft
	}
	if l.Tint == "" {
		l.Tint = d.Tint
	}
	return l
}

func (l Label) element(s *surface.Surface) dom.Label {
	return dom.Label{
		Classes: s.LabelClasses(),
		Text:    l.Text,
		Style: []dom.Style{
			{Prop: "color", Value: l.Color},
			{Prop: "font-weight", Value: l.FontWeight},
			{Prop: "padding-left", Value: l.PaddingLeft},
		},
	}
}

// Outcome is what Annotate did with a candidate.
type Outcome int

const (
	Annotated Outcome = iota
	Declined          // the surface has nothing to place in the current tree
	Detached          // a placement element left the document
	Duplicate         // the guard scope already carries this surface's label
)

func (o Outcome) String() string {
	switch o {
	case Annotated:
		return "annotated"
	case Declined:
		return "declined"
	case Detached:
		return "detached"
	case Duplicate:
		return "duplicate"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// AnnotatorOption configures an Annotator.
type AnnotatorOption func(*Annotator)

// WithLabel sets the label appearance.
func WithLabel(l Label) AnnotatorOption {
	return func(a *Annotator) { a.label = l.WithDefaults() }
}

// WithSink sets where annotation events go. Default: sink.Discard.
func WithSink(s sink.Sink) AnnotatorOption {
	return func(a *Annotator) { a.sink = s }
}

// WithPageURL sets the function reporting the current page address for
// events.
func WithPageURL(fn func() string) AnnotatorOption {
	return func(a *Annotator) { a.pageURL = fn }
}

// WithAnnotatorLogger sets the logger.
func WithAnnotatorLogger(l *slog.Logger) AnnotatorOption {
	return func(a *Annotator) { a.logger = l }
}

// Annotator mutates matched nodes. Check-then-mutate runs under a single
// mutex, so two workers never both pass the guard for the same scope.
type Annotator struct {
	doc     dom.Document
	label   Label
	sink    sink.Sink
	pageURL func() string
	newID   idgen.Generator
	logger  *slog.Logger

	mu sync.Mutex

	annotated  atomic.Int64
	declined   atomic.Int64
	detached   atomic.Int64
	duplicates atomic.Int64
	errors     atomic.Int64
	sinkErrors atomic.Int64
}

// AnnotatorStats are point-in-time counters.
type AnnotatorStats struct {
	Annotated  int64 `json:"annotated"`
	Declined   int64 `json:"declined"`
	Detached   int64 `json:"detached"`
	Duplicates int64 `json:"duplicates"`
	Errors     int64 `json:"errors"`
	SinkErrors int64 `json:"sink_errors"`
}

// NewAnnotator creates an Annotator mutating doc.
func NewAnnotator(doc dom.Document, opts ...AnnotatorOption) *Annotator {
	a := &Annotator{
		doc:     doc,
		label:   DefaultLabel(),
		sink:    sink.Discard,
		pageURL: func() string { return "" },
		newID:   idgen.Prefixed("evt_", idgen.Default),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Stats returns the current counters.
func (a *Annotator) Stats() AnnotatorStats {
	return AnnotatorStats{
		Annotated:  a.annotated.Load(),
		Declined:   a.declined.Load(),
		Detached:   a.detached.Load(),
		Duplicates: a.duplicates.Load(),
		Errors:     a.errors.Load(),
		SinkErrors: a.sinkErrors.Load(),
	}
}

// Annotate marks c as listed. The placement is resolved against the tree
// as it is now, not as it was when c was scanned. A detached node or an
// already labelled scope is a no-op, not an error.
func (a *Annotator) Annotate(ctx context.Context, c surface.Candidate, fp identity.Fingerprint) (Outcome, error) {
	s := c.Surface

	a.mu.Lock()
	out, ev, err := a.apply(ctx, c)
	a.mu.Unlock()

	switch {
	case err != nil:
		a.errors.Add(1)
		return out, fmt.Errorf("engine: annotate %s: %w", s.Kind, err)
	case out == Declined:
		a.declined.Add(1)
	case out == Detached:
		a.detached.Add(1)
	case out == Duplicate:
		a.duplicates.Add(1)
	case out == Annotated:
		a.annotated.Add(1)
		ev.ID = a.newID()
		ev.Surface = string(s.Kind)
		ev.Fingerprint = fp
		ev.PageURL = a.pageURL()
		ev.At = time.Now()
		// sink.Router reports each failing sink; only count here.
		if err := a.sink.Send(ctx, ev); err != nil {
			a.sinkErrors.Add(1)
		}
	}
	return out, nil
}

// apply must be called with a.mu held.
func (a *Annotator) apply(ctx context.Context, c surface.Candidate) (Outcome, sink.Event, error) {
	var ev sink.Event
	s := c.Surface

	if ok, err := a.attached(ctx, c.Node, c.Anchor); !ok || err != nil {
		return Detached, ev, nil
	}
	p, ok, err := s.Place(ctx, a.doc, c)
	if err != nil {
		return Declined, ev, err
	}
	if !ok || (p.Tint == nil && p.Ref == nil) {
		return Declined, ev, nil
	}
	if ok, err := a.attached(ctx, p.Elements()...); !ok || err != nil {
		return Detached, ev, nil
	}

	if p.Guard != nil {
		existing, err := a.doc.QueryAll(ctx, p.Guard, dom.Class(s.LabelClass))
		if err != nil {
			return Declined, ev, err
		}
		if len(existing) > 0 {
			return Duplicate, ev, nil
		}
	}

	if p.Tint != nil {
		if err := a.doc.SetStyle(ctx, p.Tint, "background-color", a.label.Tint); err != nil {
			return Declined, ev, fmt.Errorf("tint: %w", err)
		}
		ev.Tinted = true
	}
	if p.Ref != nil {
		if err := a.doc.InsertLabel(ctx, p.Ref, p.Pos, a.label.element(s)); err != nil {
			return Declined, ev, fmt.Errorf("label: %w", err)
		}
		ev.Labelled = true
	}
	return Annotated, ev, nil
}

// attached treats a failed check as detached: the backend loses track of
// nodes the host removed.
func (a *Annotator) attached(ctx context.Context, els ...dom.Element) (bool, error) {
	for _, el := range els {
		if el == nil {
			continue
		}
		ok, err := a.doc.Attached(ctx, el)
		if err != nil {
			a.logger.Debug("engine: attachment check failed", "error", err)
			return false, nil
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
