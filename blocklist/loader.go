// CLAUDE:SUMMARY One-shot block-list retrieval over HTTP (cache disabled) or from a local file; failures degrade to an empty set.
package blocklist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultSource is the published list the browser extension reads.
const DefaultSource = "https://raw.githubusercontent.com/1n2g4gn5283742/PartijskaBotara/main/hash.txt"

// DefaultMaxBytes caps the list body. 64 MiB is about a million digests.
const DefaultMaxBytes int64 = 64 << 20

// Loader performs the single retrieval of the block-list.
type Loader struct {
	source   string
	client   *http.Client
	ua       string
	maxBytes int64
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithUserAgent sets the User-Agent header; empty keeps the default.
func WithUserAgent(ua string) Option {
	return func(l *Loader) {
		if ua != "" {
			l.ua = ua
		}
	}
}

// WithMaxBytes caps the response body size.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) { l.maxBytes = n }
}

// WithLogger sets a custom logger.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Loader) { l.logger = lg }
}

// NewLoader creates a Loader for source: an http(s) URL, a file:// URL or a
// local path. An empty source means DefaultSource.
func NewLoader(source string, opts ...Option) *Loader {
	if source == "" {
		source = DefaultSource
	}
	l := &Loader{
		source:   source,
		client:   &http.Client{Timeout: 30 * time.Second},
		ua:       "Mozilla/5.0 (compatible; flagwatch/1.0)",
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Source returns the configured list location.
func (l *Loader) Source() string { return l.source }

// Load performs exactly one retrieval. Any failure is logged and an empty
// Set is returned; Load never retries and never fails the caller.
func (l *Loader) Load(ctx context.Context) *Set {
	start := time.Now()
	set, err := l.Fetch(ctx)
	if err != nil {
		l.logger.Error("blocklist: load failed, detection disabled for this session",
			"source", l.source, "error", err)
		return Empty()
	}
	l.logger.Info("blocklist: loaded",
		"source", l.source, "entries", set.Len(), "duration", time.Since(start))
	return set
}

// Fetch retrieves and parses the list, returning the first error met.
func (l *Loader) Fetch(ctx context.Context) (*Set, error) {
	u, err := url.Parse(l.source)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l.fetchHTTP(ctx)
		case "file":
			return l.readFile(u.Path)
		}
	}
	return l.readFile(l.source)
}

func (l *Loader) fetchHTTP(ctx context.Context) (*Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, fmt.Errorf("blocklist: new request: %w", err)
	}
	req.Header.Set("User-Agent", l.ua)
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blocklist: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("blocklist: status %s", resp.Status)
	}

	return Parse(&cappedReader{r: resp.Body, left: l.maxBytes})
}

func (l *Loader) readFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("blocklist: open: %w", err)
	}
	defer f.Close()

	return Parse(&cappedReader{r: f, left: l.maxBytes})
}

// ErrTooLarge is returned when the list exceeds the loader's byte cap.
var ErrTooLarge = errors.New("blocklist: list exceeds size cap")

// cappedReader fails with ErrTooLarge once more than left bytes are
// available, instead of silently truncating the last digest.
type cappedReader struct {
	r    io.Reader
	left int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.left <= 0 {
		var probe [1]byte
		n, err := c.r.Read(probe[:])
		if n > 0 {
			return 0, ErrTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > c.left {
		p = p[:c.left]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	return n, err
}
