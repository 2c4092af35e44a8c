package surface

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hazyhaar/flagwatch/dom"
)

// DefaultLedgerSize bounds the per-surface seen set.
const DefaultLedgerSize = 1 << 16

// Ledger is a surface's record of nodes already evaluated, keyed by stable
// node identity. It is bounded: an evicted node is still excluded by the
// processed attribute written on it, so eviction never causes a second
// evaluation while that node lives.
type Ledger struct {
	cache *lru.Cache[dom.NodeKey, struct{}]
}

// NewLedger creates a Ledger holding up to size keys.
func NewLedger(size int) (*Ledger, error) {
	if size <= 0 {
		size = DefaultLedgerSize
	}
	c, err := lru.New[dom.NodeKey, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("surface: ledger: %w", err)
	}
	return &Ledger{cache: c}, nil
}

// Claim records key and reports whether it was new. Exactly one of any
// number of concurrent claims on the same key returns true.
func (l *Ledger) Claim(key dom.NodeKey) bool {
	seen, _ := l.cache.ContainsOrAdd(key, struct{}{})
	return !seen
}

// Len returns the number of recorded keys.
func (l *Ledger) Len() int { return l.cache.Len() }
