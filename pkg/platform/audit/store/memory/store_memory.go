package memory

import (
	"context"
	"sync"

	id "scholar/pkg/domain"
	audit "scholar/pkg/platform/audit"
)

// InMemoryStore keeps the audit trail in append order. Used in tests and
// when no database is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	log     []audit.Event
	byWork  map[id.WorkID][]int
	byAgent map[id.AgentID][]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byWork:  make(map[id.WorkID][]int),
		byAgent: make(map[id.AgentID][]int),
	}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
	s.byWork = make(map[id.WorkID][]int)
	s.byAgent = make(map[id.AgentID][]int)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.log)
	s.log = append(s.log, event)
	if !event.WorkID.IsNil() {
		s.byWork[event.WorkID] = append(s.byWork[event.WorkID], i)
	}
	s.byAgent[event.AgentID] = append(s.byAgent[event.AgentID], i)
	return nil
}

func (s *InMemoryStore) ListByAgent(_ context.Context, agentID id.AgentID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byAgent[agentID]), nil
}

// ListByWork returns the events attached to a work, newest first.
func (s *InMemoryStore) ListByWork(_ context.Context, workID id.WorkID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.collect(s.byWork[workID])
	reverse(events)
	return events, nil
}

// ListRecent returns the most recent N events, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.log) - limit
	if start < 0 {
		start = 0
	}
	events := append([]audit.Event{}, s.log[start:]...)
	reverse(events)
	return events, nil
}

func (s *InMemoryStore) collect(indices []int) []audit.Event {
	events := make([]audit.Event, 0, len(indices))
	for _, i := range indices {
		events = append(events, s.log[i])
	}
	return events
}

func reverse(events []audit.Event) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}
