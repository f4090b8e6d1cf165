package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "trims whitespace", input: []string{"  ai ", "review  "}, expected: []string{"ai", "review"}},
		{name: "drops empties", input: []string{"ai", "", "   ", "review"}, expected: []string{"ai", "review"}},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"ai", "review", "ai", "consensus", "review"},
			expected: []string{"ai", "review", "consensus"},
		},
		{
			name:     "case sensitive by default",
			input:    []string{"AI", "ai"},
			expected: []string{"AI", "ai"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{
			name:     "folds case before deduping",
			input:    []string{"  Epistemology ", "epistemology", "DEBATE"},
			expected: []string{"epistemology", "debate"},
		},
		{
			name:     "keeps first occurrence order",
			input:    []string{"Consensus", "debate", "consensus"},
			expected: []string{"consensus", "debate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
