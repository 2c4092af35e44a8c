// Package sink defines output backends for annotation events. An event is
// emitted each time the annotator marks a node; it carries the fingerprint,
// never the plaintext handle.
package sink

import (
	"context"
	"time"

	"github.com/hazyhaar/flagwatch/identity"
)

// Event records one annotation.
type Event struct {
	ID          string               `json:"id"`
	Surface     string               `json:"surface"`
	Fingerprint identity.Fingerprint `json:"fingerprint"`
	PageURL     string               `json:"page_url,omitempty"`
	Labelled    bool                 `json:"labelled"`
	Tinted      bool                 `json:"tinted"`
	At          time.Time            `json:"at"`
}

// Sink is the output interface. Implementations deliver events to
// different backends (stdout, webhook, sqlite, in-process callback).
type Sink interface {
	Send(ctx context.Context, ev Event) error
	Close() error
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Send(context.Context, Event) error { return nil }
func (discard) Close() error                      { return nil }
