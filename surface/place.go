package surface

import (
	"context"

	"github.com/hazyhaar/flagwatch/dom"
)

// placeMention labels the link itself. Only links inside post text are
// annotated and no tint is applied; one mention label per post.
func (c *compiled) placeMention(ctx context.Context, doc dom.Document, cand Candidate) (Placement, bool, error) {
	post, err := doc.Closest(ctx, cand.Anchor, c.post)
	if err != nil || post == nil {
		return Placement{}, false, err
	}
	text, err := doc.Closest(ctx, cand.Anchor, c.postText)
	if err != nil || text == nil {
		return Placement{}, false, err
	}
	return Placement{Guard: post, Ref: cand.Anchor, Pos: dom.After}, true, nil
}

// placeAuthor tints the post and labels the author name.
func (c *compiled) placeAuthor(ctx context.Context, doc dom.Document, cand Candidate) (Placement, bool, error) {
	p := Placement{Guard: cand.Node, Tint: cand.Node, Ref: cand.Anchor, Pos: dom.Append}
	if span := first(ctx, doc, cand.Anchor, c.fragment); span != nil {
		p.Ref, p.Pos = span, dom.After
	}
	return p, true, nil
}

// placeSuggestion tints the cell; the label needs a name fragment inside
// the link.
func (c *compiled) placeSuggestion(ctx context.Context, doc dom.Document, cand Candidate) (Placement, bool, error) {
	p := Placement{Guard: cand.Node, Tint: cand.Node}
	if span := first(ctx, doc, cand.Anchor, c.fragment); span != nil {
		p.Ref, p.Pos = span, dom.After
	}
	return p, true, nil
}

// placeFragment labels the handle fragment, guarded by its parent.
func (c *compiled) placeFragment(ctx context.Context, doc dom.Document, cand Candidate) (Placement, bool, error) {
	parent, err := doc.Parent(ctx, cand.Anchor)
	if err != nil || parent == nil {
		return Placement{}, false, err
	}
	return Placement{Guard: parent, Ref: cand.Anchor, Pos: dom.After}, true, nil
}
