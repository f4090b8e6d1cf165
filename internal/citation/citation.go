// Package citation allocates the permanent publication identifiers. The
// format is ES-YYYY-NNNN: a per-year sequence, zero-padded to four digits,
// strictly increasing, never reused. Allocation must be race-free because
// concurrent consensus evaluations can publish different works in the same
// instant.
package citation

import (
	"context"
	"fmt"
)

// Format renders a citation identifier for a year and sequence number.
func Format(year, seq int) string {
	return fmt.Sprintf("ES-%04d-%04d", year, seq)
}

// Allocator hands out the next sequence number for a year. Implementations
// must guarantee that two concurrent calls never return the same value.
type Allocator interface {
	Next(ctx context.Context, year int) (int, error)
}
