// CLAUDE:SUMMARY Queued webhook sink: batches annotation events and POSTs them off the annotation path with retry and backoff.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// ErrQueueFull is returned by Webhook.Send when the delivery queue is full.
// The event is dropped.
var ErrQueueFull = errors.New("webhook: queue full")

// ErrSinkClosed is returned by Send after Close.
var ErrSinkClosed = errors.New("sink: closed")

// Webhook delivers events to a URL in batches. Send only enqueues; a
// single goroutine POSTs {"type":"annotations","data":[...]} with
// exponential backoff between attempts.
type Webhook struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	batchSize  int
	flushEvery time.Duration
	logger     *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets the retries per batch. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.maxRetries = n }
}

// WithWebhookBackoff sets the first retry delay; it doubles on each
// attempt. Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

// WithWebhookBatch sets the batch size and the longest time an event
// waits for its batch to fill. Defaults: 32 events, 2s.
func WithWebhookBatch(size int, every time.Duration) WebhookOption {
	return func(w *Webhook) { w.batchSize, w.flushEvery = size, every }
}

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// NewWebhook starts a Webhook sink targeting url. queueSize bounds the
// events waiting for delivery; 0 means 1024.
func NewWebhook(url string, queueSize int, opts ...WebhookOption) *Webhook {
	if queueSize <= 0 {
		queueSize = 1024
	}
	w := &Webhook{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		batchSize:  32,
		flushEvery: 2 * time.Second,
		logger:     slog.Default(),
		queue:      make(chan Event, queueSize),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	if w.batchSize <= 0 {
		w.batchSize = 1
	}
	if w.flushEvery <= 0 {
		w.flushEvery = 2 * time.Second
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	go w.loop()
	return w
}

// Send enqueues ev without blocking.
func (w *Webhook) Send(_ context.Context, ev Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrSinkClosed
	}
	select {
	case w.queue <- ev:
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close flushes the queue and waits for the last delivery.
func (w *Webhook) Close() error {
	return w.CloseContext(context.Background())
}

// CloseContext stops accepting events and waits for queued ones to be
// delivered. When ctx expires, in-flight retries are abandoned.
func (w *Webhook) CloseContext(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.cancel()
		<-w.done
		return ctx.Err()
	}
}

// WebhookStats counts events by delivery outcome.
type WebhookStats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Pending   int   `json:"pending"`
}

func (w *Webhook) Stats() WebhookStats {
	return WebhookStats{
		Delivered: w.delivered.Load(),
		Failed:    w.failed.Load(),
		Dropped:   w.dropped.Load(),
		Pending:   len(w.queue),
	}
}

func (w *Webhook) loop() {
	defer close(w.done)
	defer w.cancel()

	tick := time.NewTicker(w.flushEvery)
	defer tick.Stop()

	batch := make([]Event, 0, w.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.post(batch); err != nil {
			w.failed.Add(int64(len(batch)))
			w.logger.Warn("webhook: batch dropped", "events", len(batch), "error", err)
		} else {
			w.delivered.Add(int64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-w.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= w.batchSize {
				flush()
			}
		case <-tick.C:
			flush()
		}
	}
}

// maxBackoff caps the doubling; a configured backoff above it is kept.
const maxBackoff = time.Minute

// delay is the wait before retry attempt n (n >= 1).
func (w *Webhook) delay(n int) time.Duration {
	d := w.backoff
	for i := 1; i < n && d < maxBackoff; i++ {
		d *= 2
	}
	return max(min(d, maxBackoff), w.backoff)
}

func (w *Webhook) post(events []Event) error {
	body, err := json.Marshal(struct {
		Type string  `json:"type"`
		Data []Event `json:"data"`
	}{"annotations", events})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(w.delay(attempt)):
			case <-w.ctx.Done():
				return w.ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(w.ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			w.logger.Debug("webhook: attempt failed", "attempt", attempt+1, "error", err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook: status %d", resp.StatusCode)
		w.logger.Debug("webhook: attempt failed", "attempt", attempt+1, "status", resp.StatusCode)
	}
	return fmt.Errorf("webhook: retries exhausted: %w", lastErr)
}
