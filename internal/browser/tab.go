package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrNoTab is returned by AttachTab when no open tab shows the host.
var ErrNoTab = errors.New("browser: no open tab on host")

// Tab is the page being annotated.
type Tab struct {
	Page   *rod.Page
	router *rod.HijackRouter
	owned  bool
}

// OpenTab creates a tab, navigates it to pageURL and waits for the load
// event. A load timeout is only logged: the host keeps rendering long
// after load anyway.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string, timeout time.Duration) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: not started")
	}
	log := mgr.cfg.Logger

	var page *rod.Page
	var err error
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: new tab: %w", err)
	}
	t := &Tab{Page: page, owned: true}
	if len(mgr.blocked) > 0 {
		if t.router, err = mgr.blocked.hijack(page); err != nil {
			log.Warn("browser: resource blocking off", "error", err)
		}
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("browser: load not reached", "url", pageURL, "error", err)
	}
	log.Info("browser: tab opened", "url", pageURL, "stealth", mgr.cfg.Stealth)
	return t, nil
}

// AttachTab picks a tab already open on pageURL's host, so an attached
// session annotates what the user is looking at. Close leaves such a
// tab open.
func AttachTab(mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: not started")
	}
	want, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("browser: %w", err)
	}
	pages, err := b.Pages()
	if err != nil {
		return nil, fmt.Errorf("browser: list tabs: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if u, err := url.Parse(info.URL); err == nil && u.Hostname() == want.Hostname() {
			mgr.cfg.Logger.Info("browser: tab attached", "url", info.URL)
			return &Tab{Page: p}, nil
		}
	}
	return nil, ErrNoTab
}

// URL returns the address the tab shows now; the host navigates
// client-side, so it drifts from the one opened.
func (t *Tab) URL() string {
	info, err := t.Page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (t *Tab) Close() error {
	if t.router != nil {
		t.router.Stop()
	}
	if t.owned && t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
