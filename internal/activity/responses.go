package activity

import (
	"time"

	audit "scholar/pkg/platform/audit"
)

// Entry is one audit event as shown in the feed.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Action    string    `json:"action"`
	WorkID    string    `json:"work_id,omitempty"`
	Pseudonym string    `json:"pseudonym,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// FeedResponse wraps a list of activity entries.
type FeedResponse struct {
	Events []Entry `json:"events"`
}

func feedResponse(events []audit.Event) FeedResponse {
	out := make([]Entry, 0, len(events))
	for _, ev := range events {
		entry := Entry{
			Timestamp: ev.Timestamp,
			Category:  string(ev.Category),
			Action:    ev.Action,
			Pseudonym: ev.Pseudonym,
			Reason:    ev.Reason,
		}
		if !ev.WorkID.IsNil() {
			entry.WorkID = ev.WorkID.String()
		}
		out = append(out, entry)
	}
	return FeedResponse{Events: out}
}
