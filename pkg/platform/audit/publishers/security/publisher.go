// Package security provides a buffered audit publisher for security events.
//
// Security events (safety blocks, refused reviews, auth failures,
// deactivations) must survive short store outages without slowing down the
// request path. Events land in a bounded ring buffer and a background worker
// flushes them in batches. When the buffer overflows the oldest events are
// evicted so the most recent signal is retained.
package security

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "scholar/pkg/platform/audit"
)

const (
	defaultBufferSize    = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Store is the persistence security events are flushed into.
type Store interface {
	Append(ctx context.Context, event audit.Event) error
}

// Publisher buffers security events and flushes them in batches.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
	buffer  *ringBuffer

	batchSize     int
	flushInterval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for flush failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithBufferSize sets the ring buffer capacity.
func WithBufferSize(size int) Option {
	return func(p *Publisher) { p.buffer = newRingBuffer(size) }
}

// WithBatchSize sets the maximum events flushed per batch.
func WithBatchSize(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.batchSize = size
		}
	}
}

// WithFlushInterval sets how often buffered events are flushed.
func WithFlushInterval(interval time.Duration) Option {
	return func(p *Publisher) {
		if interval > 0 {
			p.flushInterval = interval
		}
	}
}

// New creates a security publisher and starts its flush worker.
func New(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:         store,
		logger:        slog.Default(),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer == nil {
		p.buffer = newRingBuffer(defaultBufferSize)
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Emit buffers a security event. It never blocks and never fails the caller.
func (p *Publisher) Emit(_ context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.CategorySecurity

	p.buffer.enqueue(event)
	if p.metrics != nil {
		p.metrics.IncBuffered()
		p.metrics.SetBufferDepth(p.buffer.len())
	}
	return nil
}

// Close flushes remaining events and stops the worker.
func (p *Publisher) Close() error {
	p.once.Do(func() {
		close(p.stop)
		p.wg.Wait()
	})
	return nil
}

func (p *Publisher) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.flush()
		case <-p.stop:
			// Final drain before shutdown.
			for p.buffer.len() > 0 {
				if !p.flush() {
					return
				}
			}
			return
		}
	}
}

// flush persists one batch. A failed write puts the unpersisted remainder
// back so ordering is preserved across retries.
func (p *Publisher) flush() bool {
	batch := p.buffer.dequeueBatch(p.batchSize)
	if len(batch) == 0 {
		return true
	}

	for i, event := range batch {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.buffer.requeueFront(batch[i:])
			if p.metrics != nil {
				p.metrics.IncPersistFailures()
				p.metrics.SetBufferDepth(p.buffer.len())
			}
			p.logger.Error("failed to persist security audit batch",
				"error", err, "remaining", len(batch)-i)
			return false
		}
		if p.metrics != nil {
			p.metrics.IncPersisted()
		}
	}

	if p.metrics != nil {
		p.metrics.SetBufferDepth(p.buffer.len())
		p.metrics.SetDropped(p.buffer.droppedTotal())
	}
	return true
}
