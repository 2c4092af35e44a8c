package browser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

func TestParseBlockSet(t *testing.T) {
	set, err := parseBlockSet([]string{"Images", " fonts "})
	if err != nil {
		t.Fatal(err)
	}
	tests := map[proto.NetworkResourceType]bool{
		proto.NetworkResourceTypeImage:      true,
		proto.NetworkResourceTypeFont:       true,
		proto.NetworkResourceTypeStylesheet: false,
		proto.NetworkResourceTypeDocument:   false,
		proto.NetworkResourceTypeScript:     false,
	}
	for typ, want := range tests {
		if set[typ] != want {
			t.Errorf("blocked[%s] = %v, want %v", typ, set[typ], want)
		}
	}
	if _, err := parseBlockSet([]string{"scripts"}); err == nil {
		t.Error("scripts must not be blockable")
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": Headless, "headless": Headless, "headful": Headful} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("kiosk"); err == nil {
		t.Error("expected error")
	}
	if Headful.String() != "headful" || Headless.String() != "headless" {
		t.Error("Mode.String")
	}
}

func TestNewManager(t *testing.T) {
	if _, err := NewManager(Config{ResourceBlocking: []string{"xhr"}}); err == nil {
		t.Error("expected error for unknown resource type")
	}

	m, err := NewManager(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if m.cfg.XvfbDisplay != ":99" || m.cfg.Logger == nil || m.Remote() {
		t.Errorf("defaults not applied: %+v", m.cfg)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close: %v", err)
	}
	if _, err := OpenTab(context.Background(), m, "about:blank", time.Second); err == nil {
		t.Error("OpenTab without browser should fail")
	}
	if _, err := AttachTab(m, "https://x.com/home"); err == nil {
		t.Error("AttachTab without browser should fail")
	}
}

func TestStart_UnreachableRemote(t *testing.T) {
	m, _ := NewManager(Config{RemoteURL: "ws://127.0.0.1:1", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.Start(ctx); err == nil {
		t.Fatal("expected connect error")
	}
	if m.Browser() != nil {
		t.Error("browser set after failed start")
	}
}

func TestTabs_Live(t *testing.T) {
	if testing.Short() {
		t.Skip("browser test skipped in -short mode")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no Chrome binary found")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><body><article>hi</article></body></html>`)
	}))
	defer srv.Close()

	m, err := NewManager(Config{
		Stealth:          true,
		ResourceBlocking: []string{"images"},
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Start(context.Background()); err != nil {
		t.Skipf("start chrome: %v", err)
	}
	defer m.Close()

	tab, err := OpenTab(context.Background(), m, srv.URL+"/home", 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer tab.Close()
	if got := tab.URL(); got != srv.URL+"/home" {
		t.Errorf("URL = %q", got)
	}

	attached, err := AttachTab(m, srv.URL+"/elsewhere")
	if err != nil {
		t.Fatal(err)
	}
	if attached.URL() != srv.URL+"/home" {
		t.Errorf("attached URL = %q", attached.URL())
	}
	if _, err := AttachTab(m, "https://example.invalid/"); !errors.Is(err, ErrNoTab) {
		t.Errorf("err = %v, want ErrNoTab", err)
	}
}
