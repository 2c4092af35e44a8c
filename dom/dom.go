// Package dom is the narrow view of a host document the annotation engine
// needs: query, read, test attachment, and additive mutation. Backends live
// in dom/htmldoc (in-memory x/net/html tree) and dom/roddoc (live Chrome
// page over CDP).
package dom

import (
	"context"
	"strings"
)

// NodeKey is a stable identity for a node for as long as the node lives.
// Backends never reuse a key within a session.
type NodeKey uint64

// Element is an opaque handle on a node owned by a Document.
type Element interface {
	Key() NodeKey
}

// Position says where a label goes relative to its reference element.
type Position int

const (
	// After inserts the label as the next sibling of the reference.
	After Position = iota
	// Append inserts the label as the last child of the reference.
	Append
)

func (p Position) String() string {
	if p == Append {
		return "append"
	}
	return "after"
}

// Style is one CSS declaration.
type Style struct {
	Prop  string
	Value string
}

// Label is the inline element inserted next to a flagged handle.
type Label struct {
	Classes []string
	Text    string
	Style   []Style
}

// ClassAttr renders Classes as a class attribute value.
func (l Label) ClassAttr() string { return strings.Join(l.Classes, " ") }

// StyleAttr renders Style as a style attribute value.
func (l Label) StyleAttr() string { return FormatStyle(l.Style) }

// Document is a live tree the engine reads and additively mutates. Every
// method may be called concurrently. Elements passed in must come from the
// same Document.
type Document interface {
	// QueryAll returns the descendants of root matching sel in document
	// order. A nil root means the whole document.
	QueryAll(ctx context.Context, root Element, sel Selector) ([]Element, error)
	// Attr returns the value of an attribute and whether it is present.
	Attr(ctx context.Context, el Element, name string) (string, bool, error)
	// Text returns the concatenated text content of el.
	Text(ctx context.Context, el Element) (string, error)
	// Closest returns el or its nearest ancestor matching sel, or nil.
	Closest(ctx context.Context, el Element, sel Selector) (Element, error)
	// Parent returns the parent element of el, or nil.
	Parent(ctx context.Context, el Element) (Element, error)
	// Attached reports whether el is still connected to the document.
	Attached(ctx context.Context, el Element) (bool, error)

	SetAttr(ctx context.Context, el Element, name, value string) error
	SetStyle(ctx context.Context, el Element, prop, value string) error
	InsertLabel(ctx context.Context, ref Element, pos Position, label Label) error
}

// ParseStyle splits a style attribute into declarations, keeping order.
func ParseStyle(s string) []Style {
	var out []Style
	for _, decl := range strings.Split(s, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(strings.ToLower(prop))
		if prop == "" {
			continue
		}
		out = append(out, Style{Prop: prop, Value: strings.TrimSpace(val)})
	}
	return out
}

// FormatStyle renders declarations as "a: b; c: d".
func FormatStyle(decls []Style) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.Prop+": "+d.Value)
	}
	return strings.Join(parts, "; ")
}

// SetStyleProp replaces prop in decls or appends it.
func SetStyleProp(decls []Style, prop, value string) []Style {
	for i := range decls {
		if decls[i].Prop == prop {
			decls[i].Value = value
			return decls
		}
	}
	return append(decls, Style{Prop: prop, Value: value})
}
