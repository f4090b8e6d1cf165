// Package publishers routes audit events to category-specific publishers.
//
// Each category carries different durability requirements: compliance events
// are written synchronously and fail the caller on error, security events are
// buffered and batched, and operational events are sampled best-effort.
package publishers

import (
	"context"
	"io"
	"log/slog"

	audit "scholar/pkg/platform/audit"
)

// Router dispatches events to the publisher registered for their category.
type Router struct {
	publishers map[audit.EventCategory]audit.Emitter
	fallback   audit.Emitter
	logger     *slog.Logger
}

// NewRouter creates a category router with an optional fallback emitter.
func NewRouter(logger *slog.Logger, fallback audit.Emitter) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		publishers: make(map[audit.EventCategory]audit.Emitter),
		fallback:   fallback,
		logger:     logger,
	}
}

// Register adds a publisher for a category.
func (r *Router) Register(category audit.EventCategory, emitter audit.Emitter) {
	r.publishers[category] = emitter
}

// Emit routes the event by category. An empty category is resolved from the
// action first so callers can leave it unset.
func (r *Router) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	emitter, ok := r.publishers[event.Category]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Emit(ctx, event)
		}
		r.logger.Warn("no publisher for audit category, dropping event",
			"category", string(event.Category),
			"action", event.Action,
		)
		return nil
	}
	return emitter.Emit(ctx, event)
}

// Close closes every registered publisher that supports closing.
func (r *Router) Close() error {
	var firstErr error
	seen := make(map[audit.Emitter]bool)
	for _, emitter := range r.publishers {
		if seen[emitter] {
			continue
		}
		seen[emitter] = true
		if closer, ok := emitter.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if r.fallback != nil && !seen[r.fallback] {
		if closer, ok := r.fallback.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
