// CLAUDE:SUMMARY Offline mode: one engine pass over a saved HTML page, rendering the annotated tree.
package flagwatch

import (
	"context"
	"fmt"
	"io"

	"github.com/hazyhaar/flagwatch/blocklist"
	"github.com/hazyhaar/flagwatch/dom/htmldoc"
	"github.com/hazyhaar/flagwatch/engine"
)

// Annotate parses a saved page from r, runs one scan over it, waits for
// every match to finish and writes the annotated HTML to w.
func Annotate(ctx context.Context, r io.Reader, w io.Writer, set *blocklist.Set, opts engine.Options) (engine.Stats, error) {
	doc, err := htmldoc.Parse(r)
	if err != nil {
		return engine.Stats{}, fmt.Errorf("flagwatch: annotate: %w", err)
	}
	e, err := engine.New(doc, set, opts)
	if err != nil {
		return engine.Stats{}, fmt.Errorf("flagwatch: annotate: %w", err)
	}
	e.Tick(ctx)
	e.Drain()
	e.Close()

	if err := doc.Render(w); err != nil {
		return e.Stats(), fmt.Errorf("flagwatch: render: %w", err)
	}
	return e.Stats(), nil
}
