package review

import (
	"context"
	"sync"

	id "scholar/pkg/domain"
	"scholar/pkg/platform/sentinel"
)

type versionKey struct {
	workID   id.WorkID
	version  int
	reviewer id.AgentID
}

// InMemoryStore is the non-durable review store used in tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	reviews map[id.ReviewID]*Review
	byKey   map[versionKey]id.ReviewID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		reviews: make(map[id.ReviewID]*Review),
		byKey:   make(map[versionKey]id.ReviewID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, review *Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := versionKey{review.WorkID, review.WorkVersion, review.ReviewerID}
	if _, exists := s.byKey[key]; exists {
		return sentinel.ErrConflict
	}
	cp := *review
	s.reviews[review.ID] = &cp
	s.byKey[key] = review.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, reviewID id.ReviewID) (*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	review, ok := s.reviews[reviewID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *review
	return &cp, nil
}

func (s *InMemoryStore) ListByWorkVersion(_ context.Context, workID id.WorkID, version int) ([]*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Review
	for _, review := range s.reviews {
		if review.WorkID == workID && review.WorkVersion == version {
			cp := *review
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByReviewer(_ context.Context, reviewerID id.AgentID) ([]*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Review
	for _, review := range s.reviews {
		if review.ReviewerID == reviewerID {
			cp := *review
			out = append(out, &cp)
		}
	}
	return out, nil
}
