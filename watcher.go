// CLAUDE:SUMMARY Live session orchestrator: load the block-list once, open the page in Chrome, run the engine and the optional status server until cancelled.
package flagwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/flagwatch/blocklist"
	"github.com/hazyhaar/flagwatch/dom/roddoc"
	"github.com/hazyhaar/flagwatch/engine"
	"github.com/hazyhaar/flagwatch/internal/browser"
	"github.com/hazyhaar/flagwatch/internal/config"
	"github.com/hazyhaar/flagwatch/sink"
)

// Watcher is the top-level orchestrator of a live session. It owns the
// browser, the engine and the sinks. Create one per page.
type Watcher struct {
	cfg    *config.Config
	mgr    *browser.Manager
	loader *blocklist.Loader
	sinkR  *sink.Router
	svc    *Service
	logger *slog.Logger
}

// NewWatcher creates a Watcher from configuration.
func NewWatcher(cfg *config.Config, logger *slog.Logger, sinks ...sink.Sink) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mode, err := browser.ParseMode(cfg.Browser.Mode)
	if err != nil {
		return nil, fmt.Errorf("flagwatch: %w", err)
	}

	mgr, err := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Mode:             mode,
		Stealth:          cfg.Browser.Stealth,
		UserDataDir:      cfg.Browser.UserDataDir,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("flagwatch: %w", err)
	}
	loader := blocklist.NewLoader(cfg.Blocklist.Source,
		blocklist.WithMaxBytes(cfg.Blocklist.MaxBytes),
		blocklist.WithUserAgent(cfg.Blocklist.UserAgent),
		blocklist.WithLogger(logger))

	w := &Watcher{
		cfg:    cfg,
		mgr:    mgr,
		loader: loader,
		sinkR:  sink.NewRouter(logger, sinks...),
		svc:    NewService(loader.Source(), nil),
		logger: logger,
	}
	w.svc.UseSinks(w.sinkR, sinks...)
	return w, nil
}

// Service exposes the session to MCP tools and the status API.
func (w *Watcher) Service() *Service { return w.svc }

// Run loads the block-list, then opens the page and annotates it until ctx
// is cancelled. The list is loaded before the first scan and never again;
// a failed load leaves an empty set and the session still runs.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.sinkR.Close()

	loadCtx, cancel := context.WithTimeout(ctx, w.cfg.Blocklist.Timeout)
	set := w.loader.Load(loadCtx)
	cancel()
	w.svc.set.Store(set)
	w.logger.Info("flagwatch: block-list ready", "source", w.loader.Source(), "size", set.Len())

	if _, err := w.mgr.Start(ctx); err != nil {
		return fmt.Errorf("flagwatch: start browser: %w", err)
	}
	defer w.mgr.Close()

	tab, err := w.tab(ctx)
	if err != nil {
		return fmt.Errorf("flagwatch: open tab: %w", err)
	}
	defer tab.Close()

	eng, err := engine.New(roddoc.New(tab.Page, w.logger), set, engine.Options{
		Interval:   w.cfg.Scan.Interval,
		Workers:    w.cfg.Scan.Workers,
		QueueSize:  w.cfg.Scan.QueueSize,
		LedgerSize: w.cfg.Scan.LedgerSize,
		Markup:     w.cfg.Markup,
		Label:      w.cfg.Label,
		Sink:       w.sinkR,
		PageURL:    tab.URL,
		Logger:     w.logger,
	})
	if err != nil {
		return fmt.Errorf("flagwatch: engine: %w", err)
	}
	w.svc.attach(eng)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })

	if w.cfg.Listen != "" {
		srv := &http.Server{
			Addr:              w.cfg.Listen,
			Handler:           w.svc.Handler(w.logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			w.logger.Info("flagwatch: status server listening", "addr", w.cfg.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("flagwatch: status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	w.logger.Info("flagwatch: watching", "url", w.cfg.Page.URL, "interval", w.cfg.Scan.Interval)
	err = g.Wait()
	w.logger.Info("flagwatch: stopped", "annotated", eng.Stats().Annotator.Annotated)
	return err
}

// tab reuses the user's own tab on the host when attached to their
// Chrome, and opens one otherwise.
func (w *Watcher) tab(ctx context.Context) (*browser.Tab, error) {
	if w.mgr.Remote() {
		t, err := browser.AttachTab(w.mgr, w.cfg.Page.URL)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, browser.ErrNoTab) {
			return nil, err
		}
	}
	return browser.OpenTab(ctx, w.mgr, w.cfg.Page.URL, w.cfg.Page.NavigateTimeout)
}
