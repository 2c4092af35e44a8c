package dom

import "testing"

func attrs(kv ...string) func(string) (string, bool) {
	m := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		in, css string
	}{
		{`article`, `article`},
		{`a[href^="/"]:not([href*="/status/"])`, `a[href^="/"]:not([href*="/status/"])`},
		{`[data-testid="UserCell"]`, `[data-testid="UserCell"]`},
		{`[data-testid=typeaheadResult]`, `[data-testid="typeaheadResult"]`},
		{`span.bot-flag.bot-flag-author`, `span.bot-flag.bot-flag-author`},
		{`div#main[role]`, `div#main[role]`},
		{`*`, `*`},
	}
	for _, tt := range tests {
		s, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if got := s.CSS(); got != tt.css {
			t.Errorf("Parse(%q).CSS() = %q, want %q", tt.in, got, tt.css)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{
		`article a`,
		`a > span`,
		`a:hover`,
		`[href^="/]`,
		`[=x]`,
		`a:not(span)`,
		`a:not([x]`,
		`.`,
	} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}

func TestParse_NotHoldsOneCondition(t *testing.T) {
	for _, in := range []string{
		`a:not([href*="/status/"][data-x])`,
		`a:not(.x.y)`,
		`a:not()`,
	} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}

	// Chained negations exclude either condition.
	s := MustParse(`a:not([href*="/status/"]):not([data-x])`)
	if s.Match("a", attrs("href", "/evil_bot/status/1")) {
		t.Error("status link matched")
	}
	if s.Match("a", attrs("href", "/evil_bot", "data-x", "")) {
		t.Error("data-x link matched")
	}
	if !s.Match("a", attrs("href", "/evil_bot")) {
		t.Error("plain profile link not matched")
	}
}

func TestMatch(t *testing.T) {
	profile := MustParse(`a[href^="/"]:not([href*="/status/"])`)
	tests := []struct {
		tag   string
		attr  func(string) (string, bool)
		match bool
	}{
		{"a", attrs("href", "/evil_bot"), true},
		{"a", attrs("href", "/evil_bot/status/1"), false},
		{"a", attrs("href", "https://x.com/evil_bot"), false},
		{"a", attrs(), false},
		{"div", attrs("href", "/evil_bot"), false},
	}
	for i, tt := range tests {
		if got := profile.Match(tt.tag, tt.attr); got != tt.match {
			t.Errorf("case %d: Match = %v, want %v", i, got, tt.match)
		}
	}
}

func TestMatch_ClassWord(t *testing.T) {
	s := Class("bot-flag-author")
	if !s.Match("span", attrs("class", "bot-flag bot-flag-author")) {
		t.Error("expected class word match")
	}
	if s.Match("span", attrs("class", "bot-flag-authors")) {
		t.Error("class must match whole words only")
	}
}

func TestWithout(t *testing.T) {
	base := Tag("article")
	s := base.Without("data-author-checked")
	if len(base.Not) != 0 {
		t.Fatal("Without must not mutate the receiver")
	}
	if s.Match("article", attrs("data-author-checked", "true")) {
		t.Error("marked element must not match")
	}
	if !s.Match("article", attrs()) {
		t.Error("unmarked element must match")
	}
	if got := s.CSS(); got != `article:not([data-author-checked])` {
		t.Errorf("CSS = %q", got)
	}
}

func TestStyleHelpers(t *testing.T) {
	decls := ParseStyle("color: red; ; Font-Weight:bold")
	decls = SetStyleProp(decls, "background-color", "#ffcccc")
	decls = SetStyleProp(decls, "color", "blue")
	if got, want := FormatStyle(decls), "color: blue; font-weight: bold; background-color: #ffcccc"; got != want {
		t.Errorf("FormatStyle = %q, want %q", got, want)
	}
}
