// Package htmldoc is an in-memory dom.Document over a golang.org/x/net/html
// tree. Nodes are keyed through an arena index assigned on first sight, so
// the engine never has to stamp bookkeeping on the tree itself.
//
// The host side (tests, the offline annotate command) mutates the tree
// through Mutate, which shares the document lock with the engine.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/flagwatch/dom"
)

// Document wraps a parsed HTML tree.
type Document struct {
	mu   sync.Mutex
	root *html.Node
	keys map[*html.Node]dom.NodeKey
	next dom.NodeKey
}

type element struct {
	n   *html.Node
	key dom.NodeKey
}

func (e *element) Key() dom.NodeKey { return e.key }

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return New(root), nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// New wraps an already parsed document node.
func New(root *html.Node) *Document {
	return &Document{root: root, keys: make(map[*html.Node]dom.NodeKey)}
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the current tree, for tests and debugging.
func (d *Document) String() string {
	var b strings.Builder
	_ = d.Render(&b)
	return b.String()
}

// Mutate runs fn with exclusive access to the tree. It stands in for the
// host re-rendering, inserting or removing nodes out of band. Keys of
// nodes fn detached are forgotten; a node put back later gets a new key.
func (d *Document) Mutate(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
	for n := range d.keys {
		if !d.attached(n) {
			delete(d.keys, n)
		}
	}
}

// Node returns the underlying node of an element from this document.
func Node(el dom.Element) *html.Node {
	if e, ok := el.(*element); ok {
		return e.n
	}
	return nil
}

// wrap must be called with d.mu held.
func (d *Document) wrap(n *html.Node) *element {
	key, ok := d.keys[n]
	if !ok {
		d.next++
		key = d.next
		d.keys[n] = key
	}
	return &element{n: n, key: key}
}

func (d *Document) node(el dom.Element) (*html.Node, error) {
	e, ok := el.(*element)
	if !ok || e == nil || e.n == nil {
		return nil, fmt.Errorf("htmldoc: foreign element %T", el)
	}
	return e.n, nil
}

// QueryAll implements dom.Document.
func (d *Document) QueryAll(_ context.Context, root dom.Element, sel dom.Selector) ([]dom.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := d.root
	if root != nil {
		n, err := d.node(root)
		if err != nil {
			return nil, err
		}
		start = n
	}

	var out []dom.Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if matches(c, sel) {
				out = append(out, d.wrap(c))
			}
			walk(c)
		}
	}
	walk(start)
	return out, nil
}

// Attr implements dom.Document.
func (d *Document) Attr(_ context.Context, el dom.Element, name string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(el)
	if err != nil {
		return "", false, err
	}
	v, ok := getAttr(n, name)
	return v, ok, nil
}

// Text implements dom.Document with textContent semantics.
func (d *Document) Text(_ context.Context, el dom.Element) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	collectText(n, &b)
	return b.String(), nil
}

// Closest implements dom.Document.
func (d *Document) Closest(_ context.Context, el dom.Element, sel dom.Selector) (dom.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(el)
	if err != nil {
		return nil, err
	}
	for ; n != nil; n = n.Parent {
		if matches(n, sel) {
			return d.wrap(n), nil
		}
	}
	return nil, nil
}

// Parent implements dom.Document.
func (d *Document) Parent(_ context.Context, el dom.Element) (dom.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(el)
	if err != nil {
		return nil, err
	}
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return nil, nil
	}
	return d.wrap(n.Parent), nil
}

// Attached implements dom.Document: the node is attached when its parent
// chain reaches the document root.
func (d *Document) Attached(_ context.Context, el dom.Element) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(el)
	if err != nil {
		return false, err
	}
	return d.attached(n), nil
}

func (d *Document) attached(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// SetAttr implements dom.Document.
func (d *Document) SetAttr(_ context.Context, el dom.Element, name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(el)
	if err != nil {
		return err
	}
	setAttr(n, name, value)
	return nil
}

// SetStyle implements dom.Document by rewriting the style attribute.
func (d *Document) SetStyle(_ context.Context, el dom.Element, prop, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(el)
	if err != nil {
		return err
	}
	cur, _ := getAttr(n, "style")
	decls := dom.SetStyleProp(dom.ParseStyle(cur), strings.ToLower(prop), value)
	setAttr(n, "style", dom.FormatStyle(decls))
	return nil
}

// InsertLabel implements dom.Document.
func (d *Document) InsertLabel(_ context.Context, ref dom.Element, pos dom.Position, label dom.Label) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(ref)
	if err != nil {
		return err
	}

	span := &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span}
	if cls := label.ClassAttr(); cls != "" {
		setAttr(span, "class", cls)
	}
	if st := label.StyleAttr(); st != "" {
		setAttr(span, "style", st)
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: label.Text})

	switch pos {
	case dom.Append:
		n.AppendChild(span)
	default:
		if n.Parent == nil {
			return fmt.Errorf("htmldoc: insert after detached node")
		}
		n.Parent.InsertBefore(span, n.NextSibling)
	}
	return nil
}
