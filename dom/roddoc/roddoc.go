// Package roddoc is a dom.Document over a live Chrome page driven by
// go-rod. Selectors are evaluated natively by the browser; node keys are
// CDP backend node ids, which stay stable for the node's lifetime.
package roddoc

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/flagwatch/dom"
)

//go:embed label.js
var labelJS string

// Document wraps a rod page.
type Document struct {
	page   *rod.Page
	logger *slog.Logger
}

type element struct {
	el  *rod.Element
	key dom.NodeKey
}

func (e *element) Key() dom.NodeKey { return e.key }

// New wraps page. A nil logger means slog.Default().
func New(page *rod.Page, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	return &Document{page: page, logger: logger}
}

func (d *Document) elem(ctx context.Context, el dom.Element) (*rod.Element, error) {
	e, ok := el.(*element)
	if !ok || e == nil || e.el == nil {
		return nil, fmt.Errorf("roddoc: foreign element %T", el)
	}
	return e.el.Context(ctx), nil
}

// wrap resolves the backend node id that keys the element.
func (d *Document) wrap(ctx context.Context, el *rod.Element) (*element, error) {
	node, err := el.Context(ctx).Describe(0, false)
	if err != nil {
		return nil, fmt.Errorf("roddoc: describe: %w", err)
	}
	return &element{el: el, key: dom.NodeKey(node.BackendNodeID)}, nil
}

// QueryAll implements dom.Document. Elements that vanish between the
// query and the describe call are dropped.
func (d *Document) QueryAll(ctx context.Context, root dom.Element, sel dom.Selector) ([]dom.Element, error) {
	var (
		els rod.Elements
		err error
	)
	if root == nil {
		els, err = d.page.Context(ctx).Elements(sel.CSS())
	} else {
		var r *rod.Element
		if r, err = d.elem(ctx, root); err != nil {
			return nil, err
		}
		els, err = r.Elements(sel.CSS())
	}
	if err != nil {
		return nil, fmt.Errorf("roddoc: query %s: %w", sel.CSS(), err)
	}

	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		w, err := d.wrap(ctx, el)
		if err != nil {
			d.logger.Debug("roddoc: element vanished during query", "selector", sel.CSS(), "error", err)
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// Attr implements dom.Document.
func (d *Document) Attr(ctx context.Context, el dom.Element, name string) (string, bool, error) {
	e, err := d.elem(ctx, el)
	if err != nil {
		return "", false, err
	}
	v, err := e.Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("roddoc: attribute %s: %w", name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

// Text implements dom.Document with textContent semantics (not innerText,
// which depends on layout).
func (d *Document) Text(ctx context.Context, el dom.Element) (string, error) {
	e, err := d.elem(ctx, el)
	if err != nil {
		return "", err
	}
	res, err := e.Eval(`() => this.textContent || ""`)
	if err != nil {
		return "", fmt.Errorf("roddoc: text: %w", err)
	}
	return res.Value.Str(), nil
}

// Closest implements dom.Document.
func (d *Document) Closest(ctx context.Context, el dom.Element, sel dom.Selector) (dom.Element, error) {
	return d.evalElement(ctx, el, `(s) => this.closest(s)`, sel.CSS())
}

// Parent implements dom.Document.
func (d *Document) Parent(ctx context.Context, el dom.Element) (dom.Element, error) {
	return d.evalElement(ctx, el, `() => this.parentElement`)
}

func (d *Document) evalElement(ctx context.Context, el dom.Element, js string, args ...any) (dom.Element, error) {
	e, err := d.elem(ctx, el)
	if err != nil {
		return nil, err
	}
	obj, err := e.Evaluate(rod.Eval(js, args...).ByObject())
	if err != nil {
		return nil, fmt.Errorf("roddoc: eval: %w", err)
	}
	if obj.ObjectID == "" || obj.Subtype == proto.RuntimeRemoteObjectSubtypeNull {
		return nil, nil
	}
	found, err := d.page.Context(ctx).ElementFromObject(obj)
	if err != nil {
		return nil, fmt.Errorf("roddoc: element from object: %w", err)
	}
	return d.wrap(ctx, found)
}

// Attached implements dom.Document. An element whose remote object is gone
// counts as detached.
func (d *Document) Attached(ctx context.Context, el dom.Element) (bool, error) {
	e, err := d.elem(ctx, el)
	if err != nil {
		return false, err
	}
	res, err := e.Eval(`() => this.isConnected`)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	return res.Value.Bool(), nil
}

// SetAttr implements dom.Document.
func (d *Document) SetAttr(ctx context.Context, el dom.Element, name, value string) error {
	e, err := d.elem(ctx, el)
	if err != nil {
		return err
	}
	if _, err := e.Eval(`(n, v) => this.setAttribute(n, v)`, name, value); err != nil {
		return fmt.Errorf("roddoc: set attribute %s: %w", name, err)
	}
	return nil
}

// SetStyle implements dom.Document.
func (d *Document) SetStyle(ctx context.Context, el dom.Element, prop, value string) error {
	e, err := d.elem(ctx, el)
	if err != nil {
		return err
	}
	if _, err := e.Eval(`(p, v) => this.style.setProperty(p, v)`, prop, value); err != nil {
		return fmt.Errorf("roddoc: set style %s: %w", prop, err)
	}
	return nil
}

// InsertLabel implements dom.Document.
func (d *Document) InsertLabel(ctx context.Context, ref dom.Element, pos dom.Position, label dom.Label) error {
	e, err := d.elem(ctx, ref)
	if err != nil {
		return err
	}
	if _, err := e.Eval(labelJS, pos.String(), label.ClassAttr(), label.Text, label.StyleAttr()); err != nil {
		return fmt.Errorf("roddoc: insert label: %w", err)
	}
	return nil
}
