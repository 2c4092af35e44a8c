// CLAUDE:SUMMARY Owns the Chrome behind a watch session: attach to the user's running browser or launch one, headless or headful under Xvfb.
// Package browser owns the Chrome flagwatch annotates. A session either
// attaches to a Chrome the user already runs (and is logged in with) or
// launches its own; teardown undoes exactly what Start did.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("browser: manager closed")

// Mode controls how a local Chrome is launched.
type Mode int

const (
	Headless Mode = iota
	Headful       // real window on an Xvfb display
)

// ParseMode maps "headless" and "headful" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "headless":
		return Headless, nil
	case "headful":
		return Headful, nil
	}
	return Headless, fmt.Errorf("browser: unknown mode %q", s)
}

func (m Mode) String() string {
	if m == Headful {
		return "headful"
	}
	return "headless"
}

// Config configures the browser manager.
type Config struct {
	// RemoteURL attaches to a running Chrome: a DevTools WebSocket URL, an
	// http URL or a bare port. Empty launches one.
	RemoteURL string

	Mode    Mode
	Stealth bool // open tabs through go-rod/stealth

	// UserDataDir keeps a launched Chrome's profile, and with it the host
	// login, across sessions.
	UserDataDir string

	// ResourceBlocking names the resource types a launched tab never
	// loads: images, fonts, media, stylesheets.
	ResourceBlocking []string

	XvfbDisplay string // headful only; default ":99"

	Logger *slog.Logger
}

// Manager holds one Chrome for the lifetime of a watch session.
type Manager struct {
	cfg     Config
	blocked blockSet

	mu       sync.Mutex
	b        *rod.Browser
	teardown []func() error
	closed   bool
}

// NewManager validates cfg. Start does the actual work.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.XvfbDisplay == "" {
		cfg.XvfbDisplay = ":99"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	blocked, err := parseBlockSet(cfg.ResourceBlocking)
	if err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, blocked: blocked}, nil
}

// Remote reports whether the manager attaches instead of launching.
func (m *Manager) Remote() bool { return m.cfg.RemoteURL != "" }

// Start connects to Chrome once; later calls return the same handle.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.b != nil {
		return m.b, nil
	}

	controlURL, err := m.controlURL(ctx)
	if err != nil {
		m.unwind()
		return nil, err
	}
	b := rod.New().Context(ctx).ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		m.unwind()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	// An attached Chrome belongs to the user and is left running.
	if !m.Remote() {
		m.push(b.Close)
	}
	m.b = b
	return b, nil
}

// Browser returns the connected handle, or nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.b
}

// Close undoes Start in reverse order. A remote Chrome keeps running.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.unwind()
}

func (m *Manager) controlURL(ctx context.Context) (string, error) {
	log := m.cfg.Logger
	if m.Remote() {
		u, err := launcher.ResolveURL(m.cfg.RemoteURL)
		if err != nil {
			return "", fmt.Errorf("browser: resolve %s: %w", m.cfg.RemoteURL, err)
		}
		log.Info("browser: attaching", "url", u)
		return u, nil
	}

	l := launcher.New().Context(ctx).
		Headless(m.cfg.Mode == Headless).
		Set("disable-blink-features", "AutomationControlled")
	if m.cfg.Mode == Headful {
		stop, err := startXvfb(ctx, m.cfg.XvfbDisplay, log)
		if err != nil {
			return "", err
		}
		m.push(stop)
		l = l.Env(append(os.Environ(), "DISPLAY="+m.cfg.XvfbDisplay)...)
	}
	if m.cfg.UserDataDir != "" {
		l = l.UserDataDir(m.cfg.UserDataDir)
	}
	u, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("browser: launch: %w", err)
	}
	m.push(func() error { l.Cleanup(); return nil })
	log.Info("browser: launched", "url", u, "mode", m.cfg.Mode)
	return u, nil
}

func (m *Manager) push(fn func() error) { m.teardown = append(m.teardown, fn) }

func (m *Manager) unwind() error {
	var errs []error
	for i := len(m.teardown) - 1; i >= 0; i-- {
		if err := m.teardown[i](); err != nil {
			errs = append(errs, err)
		}
	}
	m.teardown = nil
	m.b = nil
	return errors.Join(errs...)
}
