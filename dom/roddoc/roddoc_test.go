package roddoc

import (
	"context"
	"strings"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/flagwatch/blocklist"
	"github.com/hazyhaar/flagwatch/dom"
	"github.com/hazyhaar/flagwatch/engine"
	"github.com/hazyhaar/flagwatch/identity"
)

// openPage launches a local headless Chrome or skips the test.
func openPage(t *testing.T, content string) *rod.Page {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test skipped in -short mode")
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chrome binary found")
	}
	l := launcher.New().Bin(bin).Headless(true)
	u, err := l.Launch()
	if err != nil {
		t.Skipf("launch chrome: %v", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		b.Close()
		l.Cleanup()
	})

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if err := page.SetDocumentContent(content); err != nil {
		t.Fatalf("set content: %v", err)
	}
	return page
}

func TestDocument_Live(t *testing.T) {
	page := openPage(t, `<html><body><article><div data-testid="User-Name">`+
		`<a href="/evil_bot"><span>Evil</span></a></div></article></body></html>`)
	d := New(page, nil)
	ctx := context.Background()

	links, err := d.QueryAll(ctx, nil, dom.MustParse(`a[href^="/"]:not([href*="/status/"])`))
	if err != nil || len(links) != 1 {
		t.Fatalf("QueryAll = %d, %v", len(links), err)
	}
	again, _ := d.QueryAll(ctx, nil, dom.MustParse(`a[href^="/"]`))
	if again[0].Key() != links[0].Key() {
		t.Errorf("backend node id not stable: %d vs %d", links[0].Key(), again[0].Key())
	}

	post, err := d.Closest(ctx, links[0], dom.Tag("article"))
	if err != nil || post == nil {
		t.Fatalf("Closest: %v, %v", post, err)
	}
	if none, _ := d.Closest(ctx, links[0], dom.Tag("nav")); none != nil {
		t.Error("Closest(nav) should be nil")
	}

	if err := d.SetAttr(ctx, post, "data-author-checked", "true"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetStyle(ctx, post, "background-color", "#ffcccc"); err != nil {
		t.Fatal(err)
	}
	spans, _ := d.QueryAll(ctx, links[0], dom.Tag("span"))
	label := dom.Label{Classes: []string{"bot-flag", "bot-flag-author"}, Text: " BOT"}
	if err := d.InsertLabel(ctx, spans[0], dom.After, label); err != nil {
		t.Fatal(err)
	}

	flags, _ := d.QueryAll(ctx, post, dom.Class("bot-flag-author"))
	if len(flags) != 1 {
		t.Fatalf("labels = %d, want 1", len(flags))
	}
	text, _ := d.Text(ctx, post)
	if !strings.Contains(text, "BOT") {
		t.Errorf("text = %q", text)
	}

	page.MustEval(`() => document.querySelector('article').remove()`)
	if ok, _ := d.Attached(ctx, links[0]); ok {
		t.Error("removed link must be detached")
	}
}

// One page carrying all five surfaces.
const surfaces = `<html><body>
<article><div data-testid="User-Name"><a href="/evil_bot"><span>Evil</span></a></div><div data-testid="tweetText">hi</div></article>
<article><div data-testid="User-Name"><a href="/real_person"><span>Real</span></a></div><div data-testid="tweetText">cc <a href="/evil_bot">@evil_bot</a> and <a href="/evil_bot">@evil_bot</a></div></article>
<div data-testid="UserCell"><a href="/evil_bot"><span>Evil</span></a></div>
<div data-testid="typeaheadResult"><div><span>Evil</span><span>@evil_bot</span></div></div>
<div data-testid="typeaheadRecentSearchesItem"><div><span>@evil_bot</span></div></div>
</body></html>`

func TestEngine_Live(t *testing.T) {
	page := openPage(t, surfaces)
	d := New(page, nil)
	ctx := context.Background()

	e, err := engine.New(d, blocklist.NewSet(identity.Of("@evil_bot")), engine.Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	count := func() map[string]int {
		out := map[string]int{}
		for _, k := range []string{"author", "text", "suggestion", "search", "recent"} {
			els, err := d.QueryAll(ctx, nil, dom.Class("bot-flag-"+k))
			if err != nil {
				t.Fatal(err)
			}
			out[k] = len(els)
		}
		return out
	}
	tints := func() int {
		return page.MustEval(`() => [...document.querySelectorAll('*')]
			.filter(e => e.style.backgroundColor !== '').length`).Int()
	}

	e.Tick(ctx)
	e.Drain()

	want := map[string]int{"author": 1, "text": 1, "suggestion": 1, "search": 1, "recent": 1}
	got := count()
	for k, n := range want {
		if got[k] != n {
			t.Errorf("%s labels = %d, want %d", k, got[k], n)
		}
	}
	if n := tints(); n != 2 {
		t.Errorf("tinted = %d, want 2", n)
	}
	st := e.Stats().Annotator
	if st.Annotated != 5 || st.Duplicates != 1 || st.Errors != 0 {
		t.Errorf("annotator = %+v", st)
	}

	// A second pass finds every node marked.
	e.Tick(ctx)
	e.Drain()
	if again := count(); again["author"] != 1 || again["text"] != 1 || again["recent"] != 1 {
		t.Errorf("after second tick = %v", again)
	}
	if n := tints(); n != 2 {
		t.Errorf("tinted after second tick = %d", n)
	}
}
