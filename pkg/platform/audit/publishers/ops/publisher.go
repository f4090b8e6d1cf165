// Package ops provides a best-effort audit publisher for routine events.
//
// Operational events (submissions, revisions, reviews, challenge traffic) are
// high volume and individually low value. The publisher samples them, writes
// asynchronously, and sheds load through a circuit breaker when the store is
// unhealthy. Losing an ops event never fails the business operation.
package ops

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "scholar/pkg/platform/audit"
)

// Store is the persistence ops events are written through.
type Store interface {
	Append(ctx context.Context, event audit.Event) error
}

// Publisher emits operational events best-effort.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
	sampler *Sampler
	breaker *CircuitBreaker

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for dropped or failed writes.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithSampler overrides the default keep-everything sampler.
func WithSampler(s *Sampler) Option {
	return func(p *Publisher) { p.sampler = s }
}

// WithBufferSize sets the async buffer capacity.
func WithBufferSize(size int) Option {
	return func(p *Publisher) { p.buffer = make(chan audit.Event, size) }
}

// New creates an ops publisher.
func New(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		logger:  slog.Default(),
		sampler: NewSampler(1.0),
		breaker: NewCircuitBreaker(5, time.Minute),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer == nil {
		p.buffer = make(chan audit.Event, 1000)
	}
	p.wg.Add(1)
	go p.drain()
	return p
}

// Emit enqueues an operational event. Sampled-out events, a full buffer, and
// an open circuit all drop the event without error.
func (p *Publisher) Emit(_ context.Context, event audit.Event) error {
	if !p.sampler.ShouldSample(event.Action) {
		if p.metrics != nil {
			p.metrics.IncSampled()
		}
		return nil
	}
	if !p.breaker.Allow() {
		if p.metrics != nil {
			p.metrics.IncCircuitBreakerDropped()
			p.metrics.SetCircuitBreakerState(true)
		}
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.CategoryOperations

	select {
	case p.buffer <- event:
	default:
		p.logger.Warn("ops audit event dropped", "action", event.Action)
	}
	return nil
}

// Close drains the buffer and stops the worker.
func (p *Publisher) Close() error {
	p.once.Do(func() {
		close(p.buffer)
		p.wg.Wait()
	})
	return nil
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.breaker.RecordFailure()
			if p.metrics != nil {
				p.metrics.IncPersistFailures()
				p.metrics.SetCircuitBreakerState(p.breaker.IsOpen())
			}
			p.logger.Error("failed to persist ops audit event",
				"error", err, "action", event.Action)
			continue
		}
		p.breaker.RecordSuccess()
		if p.metrics != nil {
			p.metrics.IncTracked()
			p.metrics.SetCircuitBreakerState(false)
		}
	}
}
