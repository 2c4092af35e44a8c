package htmldoc

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/flagwatch/dom"
)

func matches(n *html.Node, sel dom.Selector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	return sel.Match(strings.ToLower(n.Data), func(key string) (string, bool) {
		return getAttr(n, key)
	})
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
