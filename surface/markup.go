package surface

import (
	"fmt"

	"github.com/hazyhaar/flagwatch/dom"
)

// Markup holds the host-specific selectors. The host keeps them stable for
// a session but changes them between releases, so they are configuration.
type Markup struct {
	Post         string `yaml:"post"`
	AuthorName   string `yaml:"author_name"`
	PostText     string `yaml:"post_text"`
	Link         string `yaml:"link"`
	ProfileLink  string `yaml:"profile_link"`
	UserCell     string `yaml:"user_cell"`
	SearchResult string `yaml:"search_result"`
	RecentSearch string `yaml:"recent_search"`
	Fragment     string `yaml:"fragment"`
	// PostPath marks links to a single post rather than a profile.
	PostPath string `yaml:"post_path"`
}

// DefaultMarkup matches the current x.com markup.
func DefaultMarkup() Markup {
	return Markup{
		Post:         `article`,
		AuthorName:   `[data-testid="User-Name"]`,
		PostText:     `[data-testid="tweetText"]`,
		Link:         `a[href^="/"]`,
		ProfileLink:  `a[href^="/"]:not([href*="/status/"])`,
		UserCell:     `[data-testid="UserCell"]`,
		SearchResult: `[data-testid="typeaheadResult"]`,
		RecentSearch: `[data-testid="typeaheadRecentSearchesItem"]`,
		Fragment:     `span`,
		PostPath:     `/status/`,
	}
}

// WithDefaults fills empty fields from DefaultMarkup.
func (m Markup) WithDefaults() Markup {
	d := DefaultMarkup()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&m.Post, d.Post)
	fill(&m.AuthorName, d.AuthorName)
	fill(&m.PostText, d.PostText)
	fill(&m.Link, d.Link)
	fill(&m.ProfileLink, d.ProfileLink)
	fill(&m.UserCell, d.UserCell)
	fill(&m.SearchResult, d.SearchResult)
	fill(&m.RecentSearch, d.RecentSearch)
	fill(&m.Fragment, d.Fragment)
	fill(&m.PostPath, d.PostPath)
	return m
}

type compiled struct {
	post, authorName, postText           dom.Selector
	link, profileLink, userCell          dom.Selector
	searchResult, recentSearch, fragment dom.Selector
	postPath                             string
	authorLabel                          dom.Selector
}

func (m Markup) compile() (*compiled, error) {
	m = m.WithDefaults()
	c := &compiled{postPath: m.PostPath, authorLabel: dom.Class("bot-flag-author")}
	for _, f := range []struct {
		name string
		src  string
		dst  *dom.Selector
	}{
		{"post", m.Post, &c.post},
		{"author_name", m.AuthorName, &c.authorName},
		{"post_text", m.PostText, &c.postText},
		{"link", m.Link, &c.link},
		{"profile_link", m.ProfileLink, &c.profileLink},
		{"user_cell", m.UserCell, &c.userCell},
		{"search_result", m.SearchResult, &c.searchResult},
		{"recent_search", m.RecentSearch, &c.recentSearch},
		{"fragment", m.Fragment, &c.fragment},
	} {
		sel, err := dom.Parse(f.src)
		if err != nil {
			return nil, fmt.Errorf("surface: markup %s: %w", f.name, err)
		}
		*f.dst = sel
	}
	return c, nil
}
