package batcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultBatchSize  = 20
	defaultInterval   = 5 * time.Second
	defaultFlushDelay = 750 * time.Millisecond
	closeFlushTimeout = 3 * time.Second
)

// Event is one queued detection observation.
type Event struct {
	Type        string          `json:"eventType"`
	Message     string          `json:"message"`
	Timestamp   time.Time       `json:"timestamp"`
	CandidateID string          `json:"candidateId,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// Sender delivers one drained batch. Any error marks the whole batch
// undelivered and eligible for retry.
type Sender interface {
	Send(ctx context.Context, sessionID string, events []Event) error
}

// Options tune the flush cadence.
type Options struct {
	// BatchSize triggers an immediate flush once the queue reaches it.
	BatchSize int
	// Interval is the periodic flush tick bounding worst-case latency.
	Interval time.Duration
	// FlushDelay debounces a flush shortly after any event arrives.
	FlushDelay time.Duration
}

// Batcher accumulates detection events and flushes them in batches. At most
// one flush is in flight at a time; a failed batch is requeued at the front
// of the queue so ordering survives retries. The queue is unbounded: under
// persistent delivery failure it grows without backpressure to the producer.
type Batcher struct {
	sender      Sender
	sessionID   string
	candidateID string
	opts        Options
	log         *slog.Logger

	mu       sync.Mutex
	queue    []Event
	inflight bool
	debounce *time.Timer
	closed   bool
}

// New constructs a batcher for one session context.
func New(sender Sender, sessionID, candidateID string, opts Options, log *slog.Logger) *Batcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = defaultFlushDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Batcher{
		sender:      sender,
		sessionID:   sessionID,
		candidateID: candidateID,
		opts:        opts,
		log:         log.With("component", "event_batcher"),
	}
}

// Push appends an event to the queue. Reaching BatchSize triggers an
// immediate fire-and-forget flush; otherwise a debounced flush is armed so
// sparse violations still go out quickly.
func (b *Batcher) Push(event Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.CandidateID == "" {
		event.CandidateID = b.candidateID
	}
	b.queue = append(b.queue, event)
	full := len(b.queue) >= b.opts.BatchSize
	if !full {
		if b.debounce == nil {
			b.debounce = time.AfterFunc(b.opts.FlushDelay, func() {
				_ = b.Flush(context.Background())
			})
		} else {
			b.debounce.Reset(b.opts.FlushDelay)
		}
	}
	b.mu.Unlock()

	if full {
		go func() { _ = b.Flush(context.Background()) }()
	}
}

// Flush drains the entire queue and attempts one delivery. A flush while
// another is in progress is a no-op; the queue keeps accumulating for the
// next trigger. On failure the drained batch returns to the front of the
// queue in its original order.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	if b.inflight || len(b.queue) == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := b.queue
	b.queue = nil
	b.inflight = true
	b.mu.Unlock()

	err := b.sender.Send(ctx, b.sessionID, batch)

	b.mu.Lock()
	b.inflight = false
	if err != nil {
		b.queue = append(batch, b.queue...)
	}
	b.mu.Unlock()

	if err != nil {
		b.log.Warn("batch delivery failed, requeued", "count", len(batch), "error", err)
		return err
	}
	b.log.Debug("batch delivered", "count", len(batch))
	return nil
}

// Run flushes on a fixed interval until the context is cancelled, bounding
// worst-case delivery latency for low-frequency sessions.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = b.Flush(ctx)
		}
	}
}

// Close stops accepting events and attempts one final best-effort flush.
func (b *Batcher) Close() error {
	b.mu.Lock()
	b.closed = true
	if b.debounce != nil {
		b.debounce.Stop()
	}
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
	defer cancel()
	return b.Flush(ctx)
}

// Pending returns the current queue depth.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
