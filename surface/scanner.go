// CLAUDE:SUMMARY Per-surface scan: query unmarked candidates, claim and mark them before extraction, dispatch valid identities.
package surface

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/flagwatch/dom"
)

// Dispatch hands a candidate to the match engine. It must not block for
// long; the scan holds no lock while calling it.
type Dispatch func(ctx context.Context, c Candidate)

// ScanResult counts one scan.
type ScanResult struct {
	Candidates int `json:"candidates"`
	Dispatched int `json:"dispatched"`
	Abandoned  int `json:"abandoned"`
}

// Scanner evaluates one surface against a document.
type Scanner struct {
	surface *Surface
	ledger  *Ledger
	logger  *slog.Logger
}

// NewScanner creates a Scanner. A nil ledger gets a default-sized one.
func NewScanner(s *Surface, ledger *Ledger, logger *slog.Logger) (*Scanner, error) {
	if ledger == nil {
		var err error
		if ledger, err = NewLedger(DefaultLedgerSize); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{surface: s, ledger: ledger, logger: logger}, nil
}

// Surface returns the scanned surface.
func (sc *Scanner) Surface() *Surface { return sc.surface }

// Ledger returns the scanner's seen set.
func (sc *Scanner) Ledger() *Ledger { return sc.ledger }

// Scan evaluates every unmarked candidate once. A node is claimed and
// marked before its identity is read, so a later scan never re-selects it
// even while its match is still in flight, and a failed extraction is
// never retried.
func (sc *Scanner) Scan(ctx context.Context, doc dom.Document, dispatch Dispatch) (ScanResult, error) {
	var res ScanResult
	s := sc.surface

	els, err := doc.QueryAll(ctx, nil, s.Candidates.Without(s.Marker))
	if err != nil {
		return res, fmt.Errorf("surface %s: query: %w", s.Kind, err)
	}

	for _, el := range els {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !sc.ledger.Claim(el.Key()) {
			continue
		}
		res.Candidates++
		if err := doc.SetAttr(ctx, el, s.Marker, "true"); err != nil {
			sc.logger.Debug("surface: mark failed", "surface", s.Kind, "error", err)
		}

		ex := s.Extract(ctx, doc, el)
		if ex.Status != Valid {
			res.Abandoned++
			continue
		}
		dispatch(ctx, Candidate{
			Surface:  s,
			Node:     el,
			Anchor:   ex.Anchor,
			Identity: ex.Identity,
		})
		res.Dispatched++
	}
	return res, nil
}
