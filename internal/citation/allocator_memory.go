package citation

import (
	"context"
	"sync"
)

// MemoryAllocator is the in-process Allocator for tests and local runs.
type MemoryAllocator struct {
	mu   sync.Mutex
	seqs map[int]int
}

func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{seqs: make(map[int]int)}
}

func (a *MemoryAllocator) Next(_ context.Context, year int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seqs[year]++
	return a.seqs[year], nil
}
