package submission

import (
	"fmt"
	"unicode/utf8"

	dErrors "scholar/pkg/domain-errors"
)

// Field bounds for submitted works.
const (
	TitleMin    = 10
	TitleMax    = 200
	AbstractMin = 100
	AbstractMax = 2000
	BodyMin     = 1000
	BodyMax     = 100000

	KeywordsMin   = 3
	KeywordsMax   = 10
	KeywordMinLen = 2
	KeywordMaxLen = 50

	ReferencesMax   = 100
	ReferenceMaxLen = 500

	RevisionNotesMax = 2000
)

// SubmitInput is the author-supplied payload for a new work.
type SubmitInput struct {
	Title            string   `json:"title"`
	Abstract         string   `json:"abstract"`
	Body             string   `json:"body"`
	Keywords         []string `json:"keywords"`
	Subject          string   `json:"subject"`
	References       []string `json:"references"`
	AgentDeclaration bool     `json:"agent_declaration"`
}

// ReviseInput is the author-supplied payload for a revision. Title and
// abstract fall back to the current version when omitted.
type ReviseInput struct {
	Title         string `json:"title,omitempty"`
	Abstract      string `json:"abstract,omitempty"`
	Body          string `json:"body"`
	RevisionNotes string `json:"revision_notes,omitempty"`
}

func boundsProblem(field string, got, min, max int) string {
	return fmt.Sprintf("%s must be between %d and %d characters (got %d)", field, min, max, got)
}

// Validate checks every field bound and collects all problems so the author
// can fix them in one pass.
func (in SubmitInput) Validate() error {
	var problems []string

	if n := utf8.RuneCountInString(in.Title); n < TitleMin || n > TitleMax {
		problems = append(problems, boundsProblem("title", n, TitleMin, TitleMax))
	}
	if n := utf8.RuneCountInString(in.Abstract); n < AbstractMin || n > AbstractMax {
		problems = append(problems, boundsProblem("abstract", n, AbstractMin, AbstractMax))
	}
	if n := utf8.RuneCountInString(in.Body); n < BodyMin || n > BodyMax {
		problems = append(problems, boundsProblem("body", n, BodyMin, BodyMax))
	}

	if len(in.Keywords) < KeywordsMin || len(in.Keywords) > KeywordsMax {
		problems = append(problems, fmt.Sprintf("between %d and %d keywords required (got %d)", KeywordsMin, KeywordsMax, len(in.Keywords)))
	}
	for _, kw := range in.Keywords {
		if n := utf8.RuneCountInString(kw); n < KeywordMinLen || n > KeywordMaxLen {
			problems = append(problems, boundsProblem("keyword", n, KeywordMinLen, KeywordMaxLen))
		}
	}

	if len(in.References) > ReferencesMax {
		problems = append(problems, fmt.Sprintf("maximum %d references allowed (got %d)", ReferencesMax, len(in.References)))
	}
	for _, ref := range in.References {
		if utf8.RuneCountInString(ref) > ReferenceMaxLen {
			problems = append(problems, fmt.Sprintf("reference must not exceed %d characters", ReferenceMaxLen))
		}
	}

	if !in.AgentDeclaration {
		problems = append(problems, "agent declaration must be acknowledged")
	}

	if len(problems) > 0 {
		return dErrors.WithDetails(dErrors.CodeValidation, "invalid submission", problems)
	}
	return nil
}

// Validate checks the revision payload. Omitted title/abstract are allowed;
// present ones must satisfy the same bounds as a fresh submission.
func (in ReviseInput) Validate() error {
	var problems []string

	if in.Title != "" {
		if n := utf8.RuneCountInString(in.Title); n < TitleMin || n > TitleMax {
			problems = append(problems, boundsProblem("title", n, TitleMin, TitleMax))
		}
	}
	if in.Abstract != "" {
		if n := utf8.RuneCountInString(in.Abstract); n < AbstractMin || n > AbstractMax {
			problems = append(problems, boundsProblem("abstract", n, AbstractMin, AbstractMax))
		}
	}
	if n := utf8.RuneCountInString(in.Body); n < BodyMin || n > BodyMax {
		problems = append(problems, boundsProblem("body", n, BodyMin, BodyMax))
	}
	if utf8.RuneCountInString(in.RevisionNotes) > RevisionNotesMax {
		problems = append(problems, fmt.Sprintf("revision notes must not exceed %d characters", RevisionNotesMax))
	}

	if len(problems) > 0 {
		return dErrors.WithDetails(dErrors.CodeValidation, "invalid revision", problems)
	}
	return nil
}
