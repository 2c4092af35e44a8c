// Package surface describes the five places a handle shows up on the host
// page (mentions, post authorship, suggested accounts, live search, recent
// searches) and scans them. Each surface owns its processed marker, its
// label class and its own ledger of nodes already seen.
package surface

import (
	"context"
	"fmt"

	"github.com/hazyhaar/flagwatch/dom"
	"github.com/hazyhaar/flagwatch/identity"
)

// Kind names a surface.
type Kind string

const (
	Mention    Kind = "mention"
	Author     Kind = "author"
	Suggestion Kind = "suggestion"
	Search     Kind = "search"
	Recent     Kind = "recent"
)

// Kinds lists every surface in scan order.
func Kinds() []Kind {
	return []Kind{Author, Mention, Suggestion, Search, Recent}
}

// LabelBaseClass is carried by every label regardless of surface.
const LabelBaseClass = "bot-flag"

// Status classifies an extraction.
type Status int

const (
	NotFound  Status = iota // expected sub-structure missing
	Malformed               // text found but not a valid identity
	Skipped                 // surface-specific early exit (already annotated)
	Valid
)

func (s Status) String() string {
	switch s {
	case NotFound:
		return "not_found"
	case Malformed:
		return "malformed"
	case Skipped:
		return "skipped"
	case Valid:
		return "valid"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Extraction is the typed result of reading an identity out of a node.
type Extraction struct {
	Status   Status
	Identity identity.Identity
	// Anchor is the link or text fragment the identity was read from.
	Anchor dom.Element
	// Err explains a Malformed result.
	Err error
}

// Candidate is a node with a valid identity, ready for matching.
type Candidate struct {
	Surface  *Surface
	Node     dom.Element
	Anchor   dom.Element
	Identity identity.Identity
}

// Placement says where an annotation goes. It is resolved after the
// fingerprint check, against the tree as it is then.
type Placement struct {
	// Guard is the scope searched for an existing label of this surface.
	Guard dom.Element
	// Tint receives the background colour; nil for surfaces without one.
	Tint dom.Element
	// Ref is the label reference; nil means no label for this node.
	Ref dom.Element
	Pos dom.Position
}

// Elements returns the non-nil elements of p.
func (p Placement) Elements() []dom.Element {
	var out []dom.Element
	for _, el := range []dom.Element{p.Guard, p.Tint, p.Ref} {
		if el != nil {
			out = append(out, el)
		}
	}
	return out
}

type extractFunc func(ctx context.Context, doc dom.Document, node dom.Element) Extraction

type placeFunc func(ctx context.Context, doc dom.Document, c Candidate) (Placement, bool, error)

// Surface is one scanned context of the host page.
type Surface struct {
	Kind Kind
	// Candidates selects the nodes this surface evaluates.
	Candidates dom.Selector
	// Marker is the boolean attribute recording that a node was evaluated.
	Marker string
	// LabelClass scopes idempotency checks to this surface.
	LabelClass string

	extract extractFunc
	place   placeFunc
}

// Extract reads the identity of node. It never returns an error: every
// failure is a NotFound or Malformed extraction.
func (s *Surface) Extract(ctx context.Context, doc dom.Document, node dom.Element) Extraction {
	return s.extract(ctx, doc, node)
}

// Place resolves where c's annotation goes. ok is false when the surface
// declines to annotate in the current tree.
func (s *Surface) Place(ctx context.Context, doc dom.Document, c Candidate) (Placement, bool, error) {
	return s.place(ctx, doc, c)
}

// LabelClasses returns the class list of this surface's label.
func (s *Surface) LabelClasses() []string {
	return []string{LabelBaseClass, s.LabelClass}
}

// Surfaces builds the five surfaces for m.
func Surfaces(m Markup) ([]*Surface, error) {
	c, err := m.compile()
	if err != nil {
		return nil, err
	}
	return []*Surface{
		{
			Kind:       Author,
			Candidates: c.post,
			Marker:     "data-author-checked",
			LabelClass: "bot-flag-author",
			extract:    c.extractAuthor,
			place:      c.placeAuthor,
		},
		{
			Kind:       Mention,
			Candidates: c.link,
			Marker:     "data-bot-checked",
			LabelClass: "bot-flag-text",
			extract:    c.extractMention,
			place:      c.placeMention,
		},
		{
			Kind:       Suggestion,
			Candidates: c.userCell,
			Marker:     "data-suggestion-checked",
			LabelClass: "bot-flag-suggestion",
			extract:    c.extractNestedLink,
			place:      c.placeSuggestion,
		},
		{
			Kind:       Search,
			Candidates: c.searchResult,
			Marker:     "data-search-checked",
			LabelClass: "bot-flag-search",
			extract:    c.extractFragment,
			place:      c.placeFragment,
		},
		{
			Kind:       Recent,
			Candidates: c.recentSearch,
			Marker:     "data-recent-checked",
			LabelClass: "bot-flag-recent",
			extract:    c.extractFragment,
			place:      c.placeFragment,
		},
	}, nil
}
