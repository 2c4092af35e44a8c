package surface

import (
	"context"
	"errors"
	"strings"

	"github.com/hazyhaar/flagwatch/dom"
	"github.com/hazyhaar/flagwatch/identity"
)

// ErrPostLink marks a link that targets a single post, not a profile.
var ErrPostLink = errors.New("surface: link targets a post")

func first(ctx context.Context, doc dom.Document, root dom.Element, sel dom.Selector) dom.Element {
	els, err := doc.QueryAll(ctx, root, sel)
	if err != nil || len(els) == 0 {
		return nil
	}
	return els[0]
}

// fromLink reads the identity of a profile link.
func (c *compiled) fromLink(ctx context.Context, doc dom.Document, a dom.Element) Extraction {
	href, ok, err := doc.Attr(ctx, a, "href")
	if err != nil || !ok {
		return Extraction{Status: NotFound}
	}
	if c.postPath != "" && strings.Contains(href, c.postPath) {
		return Extraction{Status: Malformed, Err: ErrPostLink}
	}
	id, err := identity.FromProfilePath(href)
	if err != nil {
		return Extraction{Status: Malformed, Err: err}
	}
	return Extraction{Status: Valid, Identity: id, Anchor: a}
}

// extractMention treats the candidate itself as the link.
func (c *compiled) extractMention(ctx context.Context, doc dom.Document, a dom.Element) Extraction {
	return c.fromLink(ctx, doc, a)
}

// extractAuthor reads the profile link inside the post's name block.
func (c *compiled) extractAuthor(ctx context.Context, doc dom.Document, post dom.Element) Extraction {
	if first(ctx, doc, post, c.authorLabel) != nil {
		return Extraction{Status: Skipped}
	}
	name := first(ctx, doc, post, c.authorName)
	if name == nil {
		return Extraction{Status: NotFound}
	}
	a := first(ctx, doc, name, c.profileLink)
	if a == nil {
		return Extraction{Status: NotFound}
	}
	return c.fromLink(ctx, doc, a)
}

// extractNestedLink reads the first profile link inside the node.
func (c *compiled) extractNestedLink(ctx context.Context, doc dom.Document, node dom.Element) Extraction {
	a := first(ctx, doc, node, c.profileLink)
	if a == nil {
		return Extraction{Status: NotFound}
	}
	return c.fromLink(ctx, doc, a)
}

// extractFragment reads the first text fragment that starts with the
// handle marker. Later fragments are not considered even when the first
// one is malformed.
func (c *compiled) extractFragment(ctx context.Context, doc dom.Document, node dom.Element) Extraction {
	frags, err := doc.QueryAll(ctx, node, c.fragment)
	if err != nil {
		return Extraction{Status: NotFound}
	}
	for _, f := range frags {
		text, err := doc.Text(ctx, f)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if !strings.HasPrefix(text, identity.Marker) {
			continue
		}
		id, err := identity.FromText(text)
		if err != nil {
			return Extraction{Status: Malformed, Err: err}
		}
		return Extraction{Status: Valid, Identity: id, Anchor: f}
	}
	return Extraction{Status: NotFound}
}
