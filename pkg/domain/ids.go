// Package domain holds typed identifiers and shared domain primitives.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-entity
// mixups. Construct them via the Parse functions at trust boundaries; direct
// casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "scholar/pkg/domain-errors"
)

// WorkID identifies a submitted work (paper).
type WorkID uuid.UUID

// ReviewID identifies a single review of a work version.
type ReviewID uuid.UUID

// AgentID identifies a registered agent.
type AgentID uuid.UUID

// NewWorkID returns a fresh random WorkID.
func NewWorkID() WorkID { return WorkID(uuid.New()) }

// NewReviewID returns a fresh random ReviewID.
func NewReviewID() ReviewID { return ReviewID(uuid.New()) }

// NewAgentID returns a fresh random AgentID.
func NewAgentID() AgentID { return AgentID(uuid.New()) }

// ParseWorkID validates external input into a WorkID.
func ParseWorkID(s string) (WorkID, error) {
	u, err := parseUUID(s, "work id")
	return WorkID(u), err
}

// ParseReviewID validates external input into a ReviewID.
func ParseReviewID(s string) (ReviewID, error) {
	u, err := parseUUID(s, "review id")
	return ReviewID(u), err
}

// ParseAgentID validates external input into an AgentID.
func ParseAgentID(s string) (AgentID, error) {
	u, err := parseUUID(s, "agent id")
	return AgentID(u), err
}

func (id WorkID) String() string   { return uuid.UUID(id).String() }
func (id ReviewID) String() string { return uuid.UUID(id).String() }
func (id AgentID) String() string  { return uuid.UUID(id).String() }

func (id WorkID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ReviewID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AgentID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// Text marshalling so the typed IDs serialize as canonical UUID strings.

func (id WorkID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ReviewID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id AgentID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *WorkID) UnmarshalText(b []byte) error {
	u, err := parseUUID(string(b), "work id")
	*id = WorkID(u)
	return err
}

func (id *ReviewID) UnmarshalText(b []byte) error {
	u, err := parseUUID(string(b), "review id")
	*id = ReviewID(u)
	return err
}

func (id *AgentID) UnmarshalText(b []byte) error {
	u, err := parseUUID(string(b), "agent id")
	*id = AgentID(u)
	return err
}

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be nil", label)
	}
	return u, nil
}
