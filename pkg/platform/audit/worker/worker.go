// Package worker relays audit events from the PostgreSQL outbox to Kafka.
//
// The stores write each event to the outbox in the same transaction as the
// business change. This worker polls unpublished rows, produces them to a
// per-category topic, and marks them published. Crash between produce and
// mark yields at-least-once delivery; consumers must deduplicate on event ID.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "scholar/pkg/platform/audit"
)

const (
	// TopicCompliance carries events retained for regulatory review.
	TopicCompliance = "scholar.audit.compliance"
	// TopicSecurity carries safety and authentication events.
	TopicSecurity = "scholar.audit.security"
	// TopicOperations carries routine platform activity.
	TopicOperations = "scholar.audit.operations"

	defaultBatchSize    = 100
	defaultPollInterval = time.Second
)

// OutboxWorker ships outbox rows to Kafka.
type OutboxWorker struct {
	db     *sql.DB
	client *kgo.Client
	logger *slog.Logger

	batchSize    int
	pollInterval time.Duration
}

// Option configures the OutboxWorker.
type Option func(*OutboxWorker)

// WithBatchSize sets the number of rows claimed per poll.
func WithBatchSize(size int) Option {
	return func(w *OutboxWorker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithPollInterval sets how often the outbox is polled when idle.
func WithPollInterval(interval time.Duration) Option {
	return func(w *OutboxWorker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// NewOutboxWorker creates a worker relaying outbox rows through the given
// Kafka client.
func NewOutboxWorker(db *sql.DB, client *kgo.Client, logger *slog.Logger, opts ...Option) *OutboxWorker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &OutboxWorker{
		db:           db,
		client:       client,
		logger:       logger,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// EnsureTopics creates the audit topics if they do not exist yet.
func EnsureTopics(ctx context.Context, client *kgo.Client, partitions int32, replicas int16) error {
	adm := kadm.NewClient(client)
	topics := []string{TopicCompliance, TopicSecurity, TopicOperations}

	resp, err := adm.CreateTopics(ctx, partitions, replicas, nil, topics...)
	if err != nil {
		return fmt.Errorf("create audit topics: %w", err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Run polls the outbox until the context is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		n, err := w.relayBatch(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
		}
		if n == w.batchSize {
			// Backlog present, keep draining without waiting.
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type outboxRow struct {
	ID        uuid.UUID
	EventType string
	Payload   []byte
}

// relayBatch claims one batch of unpublished rows, produces them, and marks
// them published. Returns the number of rows shipped.
func (w *OutboxWorker) relayBatch(ctx context.Context) (int, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	rows, err := tx.QueryContext(ctx, `
		SELECT id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("query outbox: %w", err)
	}

	var batch []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.ID, &row.EventType, &row.Payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate outbox rows: %w", err)
	}
	rows.Close()

	if len(batch) == 0 {
		return 0, tx.Commit()
	}

	records := make([]*kgo.Record, 0, len(batch))
	for _, row := range batch {
		records = append(records, &kgo.Record{
			Topic: topicFor(row.EventType),
			Key:   []byte(row.ID.String()),
			Value: row.Payload,
		})
	}
	if err := w.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("produce audit records: %w", err)
	}

	ids := make([]string, len(batch))
	for i, row := range batch {
		ids[i] = row.ID.String()
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE outbox SET published_at = NOW() WHERE id = ANY($1::uuid[])
	`, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("mark outbox rows published: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}

	w.logger.DebugContext(ctx, "relayed audit outbox batch", "count", len(batch))
	return len(batch), nil
}

// topicFor maps an outbox event type to its Kafka topic via the category of
// the originating action.
func topicFor(eventType string) string {
	switch audit.AuditEvent(eventType).Category() {
	case audit.CategoryCompliance:
		return TopicCompliance
	case audit.CategorySecurity:
		return TopicSecurity
	default:
		return TopicOperations
	}
}
