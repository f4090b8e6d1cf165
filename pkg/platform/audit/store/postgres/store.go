package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	id "scholar/pkg/domain"
	audit "scholar/pkg/platform/audit"
	txcontext "scholar/pkg/platform/tx"

	"github.com/google/uuid"
)

// Store persists audit events in PostgreSQL using the transactional outbox
// pattern: every event lands in the queryable audit_events table and in the
// outbox table, from which the outbox worker ships it to Kafka.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event for proper deserialization downstream.
type outboxPayload struct {
	ID        string         `json:"ID"`
	Category  string         `json:"Category"`
	Timestamp string         `json:"Timestamp"`
	WorkID    string         `json:"WorkID,omitempty"`
	AgentID   string         `json:"AgentID,omitempty"`
	Pseudonym string         `json:"Pseudonym,omitempty"`
	Action    string         `json:"Action"`
	Reason    string         `json:"Reason,omitempty"`
	RequestID string         `json:"RequestID,omitempty"`
	Details   map[string]any `json:"Details,omitempty"`
}

// Append writes an audit event to audit_events and to the outbox in one
// transaction-scoped call (it joins an ambient transaction when present).
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Category is always derived from the action; the map is the source of truth.
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:        eventID.String(),
		Category:  string(category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		Details:   event.Details,
	}
	if !event.WorkID.IsNil() {
		payload.WorkID = event.WorkID.String()
	}
	if !event.AgentID.IsNil() {
		payload.AgentID = event.AgentID.String()
	}
	payload.Pseudonym = event.Pseudonym

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	var details []byte
	if event.Details != nil {
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	var workID, agentID *uuid.UUID
	if !event.WorkID.IsNil() {
		wid := uuid.UUID(event.WorkID)
		workID = &wid
	}
	if !event.AgentID.IsNil() {
		aid := uuid.UUID(event.AgentID)
		agentID = &aid
	}

	insertEvent := `
		INSERT INTO audit_events (
			id, category, timestamp, work_id, agent_id, pseudonym,
			action, reason, request_id, details
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, insertEvent,
		eventID,
		string(category),
		event.Timestamp,
		workID,
		agentID,
		event.Pseudonym,
		event.Action,
		event.Reason,
		event.RequestID,
		details,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	// Aggregate by agent when one is attached, otherwise by the event itself.
	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.AgentID.IsNil() {
		aggregateType = "agent"
		aggregateID = uuid.UUID(event.AgentID).String()
	}

	insertOutbox := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, insertOutbox,
		uuid.New(),
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

const eventColumns = `
	category, timestamp, work_id, agent_id, pseudonym,
	action, reason, request_id, details
`

// ListByAgent returns events attributed to a specific agent.
func (s *Store) ListByAgent(ctx context.Context, agentID id.AgentID) ([]audit.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM audit_events
		WHERE agent_id = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(agentID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListByWork returns events attributed to a specific work.
func (s *Store) ListByWork(ctx context.Context, workID id.WorkID) ([]audit.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM audit_events
		WHERE work_id = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(workID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListRecent returns the N most recent events (operator-only).
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

func (s *Store) scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category string
			event    audit.Event
			workID   *uuid.UUID
			agentID  *uuid.UUID
			details  []byte
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&workID,
			&agentID,
			&event.Pseudonym,
			&event.Action,
			&event.Reason,
			&event.RequestID,
			&details,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		if workID != nil {
			event.WorkID = id.WorkID(*workID)
		}
		if agentID != nil {
			event.AgentID = id.AgentID(*agentID)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
