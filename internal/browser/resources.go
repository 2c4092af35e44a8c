package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockable maps config names to the CDP types they cover. Scripts and
// XHR are absent: the host renders nothing without them.
var blockable = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
}

type blockSet map[proto.NetworkResourceType]bool

func parseBlockSet(names []string) (blockSet, error) {
	set := make(blockSet, len(names))
	for _, n := range names {
		t, ok := blockable[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("browser: cannot block resource type %q", n)
		}
		set[t] = true
	}
	return set, nil
}

// hijack fails requests for blocked types on page. Stop the returned
// router when the tab closes.
func (s blockSet) hijack(page *rod.Page) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		if s[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return nil, fmt.Errorf("browser: hijack: %w", err)
	}
	go router.Run()
	return router, nil
}
