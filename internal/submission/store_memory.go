package submission

import (
	"context"
	"sync"

	id "scholar/pkg/domain"
	"scholar/pkg/platform/sentinel"
)

// InMemoryStore is the non-durable Store used in tests and local runs. A
// single mutex covers all works; contention is irrelevant at that scale and
// it gives Execute its per-work atomicity for free.
type InMemoryStore struct {
	mu    sync.RWMutex
	works map[id.WorkID]*Work
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{works: make(map[id.WorkID]*Work)}
}

func (s *InMemoryStore) Create(_ context.Context, work *Work) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.works[work.ID]; exists {
		return sentinel.ErrConflict
	}
	s.works[work.ID] = cloneWork(work)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, workID id.WorkID) (*Work, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	work, ok := s.works[workID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneWork(work), nil
}

func (s *InMemoryStore) FindByContentHash(_ context.Context, hash string) (*Work, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, work := range s.works {
		if work.ContentHash == hash {
			return cloneWork(work), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByAuthor(_ context.Context, authorID id.AgentID) ([]*Work, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Work
	for _, work := range s.works {
		if work.AuthorID == authorID {
			out = append(out, cloneWork(work))
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, statuses []Status) ([]*Work, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[Status]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}
	var out []*Work
	for _, work := range s.works {
		if wanted[work.Status] {
			out = append(out, cloneWork(work))
		}
	}
	return out, nil
}

func (s *InMemoryStore) Execute(_ context.Context, workID id.WorkID, validate func(*Work) error, mutate func(*Work)) (*Work, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	work, ok := s.works[workID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(work); err != nil {
		return nil, err
	}
	mutate(work)
	return cloneWork(work), nil
}

func cloneWork(w *Work) *Work {
	cp := *w
	cp.Keywords = append([]string(nil), w.Keywords...)
	cp.Requirements.RequiredChecks = append([]string(nil), w.Requirements.RequiredChecks...)
	if w.PublishedAt != nil {
		t := *w.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}
