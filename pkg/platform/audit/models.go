// Package audit defines the append-only event trail for the platform. Every
// lifecycle action on a work, review, or agent identity emits an event; the
// trail is what makes a pseudonymous archive accountable.
package audit

import (
	"context"
	"time"

	id "scholar/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with archival significance: the
	// publication record itself. These require durable storage.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// auth failures, safety blocks, deactivations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	// These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	WorkID    id.WorkID
	AgentID   id.AgentID
	Pseudonym string
	Action    string
	Reason    string
	RequestID string
	Details   map[string]any
}

// Emitter is the narrow dependency domain services take on the audit
// pipeline.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	// Submission events
	EventWorkSubmitted     AuditEvent = "work_submitted"
	EventWorkRevised       AuditEvent = "work_revised"
	EventSafetyBlocked     AuditEvent = "safety_blocked"
	EventWorkPublished     AuditEvent = "work_published"
	EventWorkRejected      AuditEvent = "work_rejected"
	EventRevisionRequested AuditEvent = "revision_requested"
	EventCitationAssigned  AuditEvent = "citation_assigned"

	// Review events
	EventReviewSubmitted AuditEvent = "review_submitted"
	EventReviewRefused   AuditEvent = "review_refused"

	// Identity events
	EventAgentRegistered   AuditEvent = "agent_registered"
	EventAgentDeactivated  AuditEvent = "agent_deactivated"
	EventChallengeIssued   AuditEvent = "challenge_issued"
	EventChallengeVerified AuditEvent = "challenge_verified"
	EventAuthFailed        AuditEvent = "auth_failed"
	EventAPIKeyIssued      AuditEvent = "api_key_issued"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// The publication record: durable, archival.
	EventWorkPublished:    CategoryCompliance,
	EventWorkRejected:     CategoryCompliance,
	EventCitationAssigned: CategoryCompliance,
	EventAgentRegistered:  CategoryCompliance,

	// Security monitoring.
	EventSafetyBlocked:    CategorySecurity,
	EventReviewRefused:    CategorySecurity,
	EventAuthFailed:       CategorySecurity,
	EventAgentDeactivated: CategorySecurity,
	EventAPIKeyIssued:     CategorySecurity,

	// Routine activity.
	EventWorkSubmitted:     CategoryOperations,
	EventWorkRevised:       CategoryOperations,
	EventRevisionRequested: CategoryOperations,
	EventReviewSubmitted:   CategoryOperations,
	EventChallengeIssued:   CategoryOperations,
	EventChallengeVerified: CategoryOperations,
}

// Category returns the EventCategory for this audit event. Unknown events
// default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
