// Package blocklist materialises the block-list of handle fingerprints.
// The list is fetched once per session and never changes afterwards.
package blocklist

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hazyhaar/flagwatch/identity"
)

// Set is an immutable set of fingerprints. The zero value and a nil *Set
// are both empty. Safe for concurrent reads.
type Set struct {
	m map[identity.Fingerprint]struct{}
}

// NewSet builds a Set from fps.
func NewSet(fps ...identity.Fingerprint) *Set {
	m := make(map[identity.Fingerprint]struct{}, len(fps))
	for _, fp := range fps {
		m[fp] = struct{}{}
	}
	return &Set{m: m}
}

// Empty returns a Set with no members.
func Empty() *Set { return &Set{} }

// Has reports whether fp is a member.
func (s *Set) Has(fp identity.Fingerprint) bool {
	if s == nil {
		return false
	}
	_, ok := s.m[fp]
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.m)
}

// Parse reads one fingerprint per line. Lines are trimmed and blank lines
// dropped; nothing else is normalised.
func Parse(r io.Reader) (*Set, error) {
	m := make(map[identity.Fingerprint]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		m[identity.Fingerprint(line)] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("blocklist: parse: %w", err)
	}
	return &Set{m: m}, nil
}
