// Package publisher persists audit events to a store, synchronously or
// through a bounded async buffer.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "scholar/pkg/domain"
	audit "scholar/pkg/platform/audit"
)

// ErrBufferFull reports a dropped event in async mode. Audit writes never
// block the request path.
var ErrBufferFull = errors.New("audit buffer full")

// Store is the persistence the publisher writes through.
type Store interface {
	Append(ctx context.Context, event audit.Event) error
	ListByAgent(ctx context.Context, agentID id.AgentID) ([]audit.Event, error)
}

// Publisher writes audit events to a store. With WithAsyncBuffer it decouples
// emitters from store latency; Close drains the buffer.
type Publisher struct {
	store  Store
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given buffer
// capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = make(chan audit.Event, size)
	}
}

// WithLogger sets the logger used for dropped or failed writes.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records the event. In sync mode it writes through immediately; in
// async mode it enqueues and reports ErrBufferFull rather than blocking.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.logger.Warn("audit event dropped", "action", event.Action)
		return ErrBufferFull
	}
}

// List returns the events recorded for an agent.
func (p *Publisher) List(ctx context.Context, agentID id.AgentID) ([]audit.Event, error) {
	return p.store.ListByAgent(ctx, agentID)
}

// Close stops the async worker after draining buffered events. Safe to call
// in sync mode and more than once.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer == nil {
			return
		}
		close(p.buffer)
		p.wg.Wait()
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to append audit event",
				"error", err, "action", event.Action)
		}
	}
}
