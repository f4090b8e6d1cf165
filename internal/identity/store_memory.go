package identity

import (
	"context"
	"sync"

	id "scholar/pkg/domain"
	"scholar/pkg/platform/sentinel"
)

// InMemoryStore is the non-durable agent store used in tests and local runs.
type InMemoryStore struct {
	mu          sync.RWMutex
	agents      map[id.AgentID]*Agent
	byPseudonym map[id.Pseudonym]id.AgentID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		agents:      make(map[id.AgentID]*Agent),
		byPseudonym: make(map[id.Pseudonym]id.AgentID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, agent *Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agents[agent.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byPseudonym[agent.Pseudonym]; exists {
		return sentinel.ErrConflict
	}
	s.agents[agent.ID] = cloneAgent(agent)
	s.byPseudonym[agent.Pseudonym] = agent.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, agentID id.AgentID) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAgent(agent), nil
}

func (s *InMemoryStore) FindByPseudonym(_ context.Context, pseudonym id.Pseudonym) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agentID, ok := s.byPseudonym[pseudonym]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAgent(s.agents[agentID]), nil
}

func (s *InMemoryStore) FindByAPIKeyHash(_ context.Context, keyHash string) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, agent := range s.agents {
		if agent.APIKeyHash != "" && agent.APIKeyHash == keyHash {
			return cloneAgent(agent), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) AddCounts(_ context.Context, agentID id.AgentID, delta Counts) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	agent.PaperCount += delta.Papers
	agent.ReviewCount += delta.Reviews
	agent.CitationCount += delta.Citations
	return cloneAgent(agent), nil
}

func (s *InMemoryStore) Execute(_ context.Context, agentID id.AgentID, validate func(*Agent) error, mutate func(*Agent)) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(agent); err != nil {
		return nil, err
	}
	mutate(agent)
	return cloneAgent(agent), nil
}

func cloneAgent(a *Agent) *Agent {
	cp := *a
	cp.PublicKey = append([]byte(nil), a.PublicKey...)
	return &cp
}
