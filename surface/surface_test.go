package surface

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/flagwatch/dom"
	"github.com/hazyhaar/flagwatch/dom/htmldoc"
	"github.com/hazyhaar/flagwatch/identity"
)

const fixture = `<html><body>
<article id="a1">
  <div data-testid="User-Name"><a href="/evil_bot"><span>Evil Bot</span></a><a href="/evil_bot/status/1">1h</a></div>
  <div data-testid="tweetText">hello <a href="/real_person">@real_person</a> and <a href="/evil_bot/status/7">that</a></div>
</article>
<article id="a2"><div>no name block</div></article>
<div data-testid="UserCell"><a href="/cell_user"><span>Cell</span></a></div>
<div data-testid="UserCell"><a href="https://elsewhere.example/x">ext</a></div>
<div data-testid="typeaheadResult"><span>Search Person</span><span> @search_person </span><span>@second</span></div>
<div data-testid="typeaheadResult"><span>@</span></div>
<div data-testid="typeaheadRecentSearchesItem"><div><span>@recent/one</span></div></div>
<a href="/">home</a>
</body></html>`

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func setup(t *testing.T) (*htmldoc.Document, map[Kind]*Surface) {
	t.Helper()
	doc, err := htmldoc.ParseString(fixture)
	if err != nil {
		t.Fatal(err)
	}
	ss, err := Surfaces(DefaultMarkup())
	if err != nil {
		t.Fatal(err)
	}
	m := make(map[Kind]*Surface, len(ss))
	for _, s := range ss {
		m[s.Kind] = s
	}
	if len(m) != 5 {
		t.Fatalf("surfaces = %d, want 5", len(m))
	}
	return doc, m
}

func scanAll(t *testing.T, doc dom.Document, s *Surface) ([]Candidate, ScanResult, *Scanner) {
	t.Helper()
	sc, err := NewScanner(s, nil, quiet())
	if err != nil {
		t.Fatal(err)
	}
	var got []Candidate
	res, err := sc.Scan(context.Background(), doc, func(_ context.Context, c Candidate) {
		got = append(got, c)
	})
	if err != nil {
		t.Fatalf("Scan %s: %v", s.Kind, err)
	}
	return got, res, sc
}

func ids(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c.Identity)
	}
	return out
}

func TestScan_PerSurfaceIdentities(t *testing.T) {
	tests := []struct {
		kind      Kind
		want      []string
		abandoned int
	}{
		{Author, []string{"@evil_bot"}, 1},
		// profile links only: /status/ links and "/" are abandoned
		{Mention, []string{"@evil_bot", "@real_person", "@cell_user"}, 3},
		{Suggestion, []string{"@cell_user"}, 1},
		{Search, []string{"@search_person"}, 1},
		{Recent, nil, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			doc, ss := setup(t)
			got, res, _ := scanAll(t, doc, ss[tt.kind])
			if strings.Join(ids(got), ",") != strings.Join(tt.want, ",") {
				t.Errorf("identities = %v, want %v", ids(got), tt.want)
			}
			if res.Abandoned != tt.abandoned {
				t.Errorf("abandoned = %d, want %d", res.Abandoned, tt.abandoned)
			}
			if res.Candidates != res.Dispatched+res.Abandoned {
				t.Errorf("counts inconsistent: %+v", res)
			}
		})
	}
}

func TestScan_MarksBeforeExtractionAndNeverRetries(t *testing.T) {
	doc, ss := setup(t)
	s := ss[Author]
	sc, _ := NewScanner(s, nil, quiet())
	ctx := context.Background()

	var calls int
	count := func(context.Context, Candidate) { calls++ }
	first, _ := sc.Scan(ctx, doc, count)
	second, _ := sc.Scan(ctx, doc, count)

	if first.Candidates != 2 {
		t.Errorf("first scan candidates = %d, want 2", first.Candidates)
	}
	if second.Candidates != 0 || calls != 1 {
		t.Errorf("second scan candidates = %d, dispatches = %d; want 0, 1", second.Candidates, calls)
	}
	// The post without a name block stays marked and is not retried.
	out := doc.String()
	if strings.Count(out, `data-author-checked="true"`) != 2 {
		t.Errorf("expected both posts marked:\n%s", out)
	}
}

func TestScan_ProcessedMarkersAreIndependentPerSurface(t *testing.T) {
	doc, ss := setup(t)
	scanAll(t, doc, ss[Mention])
	// The author scanner must still see the posts whose links carry
	// mention markers.
	got, _, _ := scanAll(t, doc, ss[Author])
	if len(got) != 1 {
		t.Fatalf("author dispatches = %d, want 1", len(got))
	}
	out := doc.String()
	if !strings.Contains(out, `<a href="/evil_bot" data-bot-checked="true">`) {
		t.Errorf("mention marker missing:\n%s", out)
	}
}

func TestScan_LedgerBlocksReselectionWithoutAttribute(t *testing.T) {
	doc, ss := setup(t)
	s := ss[Suggestion]
	ledger, _ := NewLedger(8)
	sc, _ := NewScanner(s, ledger, quiet())
	ctx := context.Background()

	var calls int
	sc.Scan(ctx, doc, func(context.Context, Candidate) { calls++ })

	// Host re-renders the attribute away; the ledger still knows the node.
	cells, _ := doc.QueryAll(ctx, nil, s.Candidates)
	for _, c := range cells {
		n := htmldoc.Node(c)
		doc.Mutate(func(*html.Node) {
			for i := range n.Attr {
				if n.Attr[i].Key == s.Marker {
					n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
					break
				}
			}
		})
	}
	sc.Scan(ctx, doc, func(context.Context, Candidate) { calls++ })
	if calls != 1 {
		t.Errorf("dispatches = %d, want 1", calls)
	}
	if ledger.Len() != 2 || ledger.Claim(cells[0].Key()) {
		t.Errorf("ledger len = %d", ledger.Len())
	}
}

func TestScan_AuthorSkipsAnnotatedPost(t *testing.T) {
	doc, err := htmldoc.ParseString(`<article><div data-testid="User-Name"><a href="/evil_bot"><span>E</span>` +
		`<span class="bot-flag bot-flag-author"> BOT</span></a></div></article>`)
	if err != nil {
		t.Fatal(err)
	}
	ss, _ := Surfaces(Markup{})
	var author *Surface
	for _, s := range ss {
		if s.Kind == Author {
			author = s
		}
	}
	got, res, _ := scanAll(t, doc, author)
	if len(got) != 0 || res.Abandoned != 1 {
		t.Errorf("dispatches = %d, res = %+v; want skip", len(got), res)
	}
}

func TestExtract_Statuses(t *testing.T) {
	doc, ss := setup(t)
	ctx := context.Background()
	links, _ := doc.QueryAll(ctx, nil, dom.MustParse(`a[href^="/"]`))

	var postLink, root dom.Element
	for _, l := range links {
		href, _, _ := doc.Attr(ctx, l, "href")
		switch href {
		case "/evil_bot/status/1":
			postLink = l
		case "/":
			root = l
		}
	}
	ex := ss[Mention].Extract(ctx, doc, postLink)
	if ex.Status != Malformed || !errors.Is(ex.Err, ErrPostLink) {
		t.Errorf("post link: %v %v", ex.Status, ex.Err)
	}
	ex = ss[Mention].Extract(ctx, doc, root)
	if ex.Status != Malformed || !errors.Is(ex.Err, identity.ErrEmpty) {
		t.Errorf("root link: %v %v", ex.Status, ex.Err)
	}

	recent, _ := doc.QueryAll(ctx, nil, ss[Recent].Candidates)
	ex = ss[Recent].Extract(ctx, doc, recent[0])
	if ex.Status != Malformed || !errors.Is(ex.Err, identity.ErrSeparator) {
		t.Errorf("recent: %v %v", ex.Status, ex.Err)
	}
}

func TestPlace(t *testing.T) {
	doc, ss := setup(t)
	ctx := context.Background()

	place := func(k Kind) []Placement {
		var out []Placement
		got, _, _ := scanAll(t, doc, ss[k])
		for _, c := range got {
			p, ok, err := ss[k].Place(ctx, doc, c)
			if err != nil {
				t.Fatalf("%s Place: %v", k, err)
			}
			if ok {
				out = append(out, p)
			}
		}
		return out
	}

	// Only the mention inside post text is placed; the name-block link is not.
	if ps := place(Mention); len(ps) != 1 || ps[0].Tint != nil || ps[0].Pos != dom.After {
		t.Errorf("mention placements = %+v", ps)
	}
	if ps := place(Author); len(ps) != 1 || ps[0].Tint == nil || ps[0].Pos != dom.After {
		t.Errorf("author placements = %+v", ps)
	}
	if ps := place(Suggestion); len(ps) != 1 || ps[0].Ref == nil || ps[0].Tint == nil {
		t.Errorf("suggestion placements = %+v", ps)
	}
	if ps := place(Search); len(ps) != 1 || ps[0].Tint != nil || len(ps[0].Elements()) != 2 {
		t.Errorf("search placements = %+v", ps)
	}
	// "@recent/one" is malformed, so nothing reaches placement.
	if ps := place(Recent); len(ps) != 0 {
		t.Errorf("recent placements = %+v", ps)
	}
}

func TestPlace_Branches(t *testing.T) {
	type want struct {
		ok    bool
		guard string // id of Guard
		tint  string // id of Tint; "" means none
		ref   string // id of Ref; "" means no label
		pos   dom.Position
	}
	tests := []struct {
		name string
		kind Kind
		html string
		want want
	}{
		{
			name: "author link without span appends inside link",
			kind: Author,
			html: `<article id="p"><div data-testid="User-Name"><a id="l" href="/evil_bot">Evil</a></div></article>`,
			want: want{ok: true, guard: "p", tint: "p", ref: "l", pos: dom.Append},
		},
		{
			name: "author link with span goes after span",
			kind: Author,
			html: `<article id="p"><div data-testid="User-Name"><a href="/evil_bot"><span id="s">Evil</span></a></div></article>`,
			want: want{ok: true, guard: "p", tint: "p", ref: "s", pos: dom.After},
		},
		{
			name: "suggestion link without span is tint only",
			kind: Suggestion,
			html: `<div id="c" data-testid="UserCell"><a href="/evil_bot">Evil</a></div>`,
			want: want{ok: true, guard: "c", tint: "c"},
		},
		{
			name: "recent item labels after span",
			kind: Recent,
			html: `<div data-testid="typeaheadRecentSearchesItem"><div id="g"><span id="s">@recent_one</span></div></div>`,
			want: want{ok: true, guard: "g", ref: "s", pos: dom.After},
		},
		{
			name: "mention in post outside post text",
			kind: Mention,
			html: `<article><div><a href="/evil_bot">@evil_bot</a></div></article>`,
		},
		{
			name: "mention in post text outside post",
			kind: Mention,
			html: `<div data-testid="tweetText"><a href="/evil_bot">@evil_bot</a></div>`,
		},
	}
	ctx := context.Background()
	ss, err := Surfaces(DefaultMarkup())
	if err != nil {
		t.Fatal(err)
	}
	byKind := map[Kind]*Surface{}
	for _, s := range ss {
		byKind[s.Kind] = s
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := htmldoc.ParseString("<html><body>" + tt.html + "</body></html>")
			if err != nil {
				t.Fatal(err)
			}
			s := byKind[tt.kind]
			got, res, _ := scanAll(t, doc, s)
			if len(got) != 1 {
				t.Fatalf("candidates = %d (%+v), want 1", len(got), res)
			}
			p, ok, err := s.Place(ctx, doc, got[0])
			if err != nil {
				t.Fatalf("Place: %v", err)
			}
			if ok != tt.want.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.want.ok)
			}
			if !ok {
				return
			}
			id := func(el dom.Element) string {
				if el == nil {
					return ""
				}
				v, _, err := doc.Attr(ctx, el, "id")
				if err != nil {
					t.Fatal(err)
				}
				return v
			}
			if g := id(p.Guard); g != tt.want.guard {
				t.Errorf("guard = %q, want %q", g, tt.want.guard)
			}
			if g := id(p.Tint); g != tt.want.tint {
				t.Errorf("tint = %q, want %q", g, tt.want.tint)
			}
			if g := id(p.Ref); g != tt.want.ref {
				t.Errorf("ref = %q, want %q", g, tt.want.ref)
			}
			if p.Ref != nil && p.Pos != tt.want.pos {
				t.Errorf("pos = %v, want %v", p.Pos, tt.want.pos)
			}
		})
	}
}

func TestSurfaces_BadMarkup(t *testing.T) {
	if _, err := Surfaces(Markup{Post: "article > div"}); err == nil {
		t.Error("expected error for combinator selector")
	}
}

func TestDefaults_DistinctMarkersAndClasses(t *testing.T) {
	ss, _ := Surfaces(DefaultMarkup())
	markers := map[string]bool{}
	classes := map[string]bool{}
	for _, s := range ss {
		if markers[s.Marker] || classes[s.LabelClass] {
			t.Errorf("surface %s reuses a marker or class", s.Kind)
		}
		markers[s.Marker] = true
		classes[s.LabelClass] = true
	}
}
