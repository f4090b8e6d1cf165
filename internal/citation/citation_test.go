package citation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

// Citation identifiers are permanent once assigned, so the format and the
// no-duplicates guarantee under concurrency are pinned here.
type CitationSuite struct {
	suite.Suite
}

func TestCitationSuite(t *testing.T) {
	suite.Run(t, new(CitationSuite))
}

func (s *CitationSuite) TestFormat() {
	s.Equal("ES-2026-0001", Format(2026, 1))
	s.Equal("ES-2026-0042", Format(2026, 42))
	s.Equal("ES-2026-12345", Format(2026, 12345))
}

func (s *CitationSuite) TestMemoryAllocator() {
	s.Run("sequences are gapless under serial allocation", func() {
		alloc := NewMemoryAllocator()
		for want := 1; want <= 5; want++ {
			got, err := alloc.Next(context.Background(), 2026)
			s.Require().NoError(err)
			s.Equal(want, got)
		}
	})

	s.Run("years are independent", func() {
		alloc := NewMemoryAllocator()
		a, err := alloc.Next(context.Background(), 2025)
		s.Require().NoError(err)
		b, err := alloc.Next(context.Background(), 2026)
		s.Require().NoError(err)
		s.Equal(1, a)
		s.Equal(1, b)
	})

	s.Run("concurrent allocation never duplicates", func() {
		alloc := NewMemoryAllocator()
		const workers = 50
		results := make(chan int, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				seq, err := alloc.Next(context.Background(), 2026)
				s.NoError(err)
				results <- seq
			}()
		}
		wg.Wait()
		close(results)

		seen := make(map[int]bool, workers)
		for seq := range results {
			s.False(seen[seq], "duplicate sequence %d", seq)
			seen[seq] = true
		}
		s.Len(seen, workers)
	})
}
