package safety

import (
	"fmt"
	"strings"
)

// RiskLevel is the aggregate assessment of a scanned document.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Field is one named text surface of a document. Every text field of a work
// is scanned: title, abstract, body, keywords, and review text alike.
type Field struct {
	Name string
	Text string
}

// Finding reports one detector firing on one field. A detector fires at most
// once per field regardless of how many matches it produced there.
type Finding struct {
	Detector       string   `json:"detector"`
	Category       Category `json:"category"`
	Severity       Severity `json:"severity"`
	Field          string   `json:"field"`
	Matches        int      `json:"matches"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

// Result is the outcome of classifying a document.
type Result struct {
	Findings      []Finding `json:"findings"`
	RiskLevel     RiskLevel `json:"risk_level"`
	FailsOutright bool      `json:"fails_outright"`
}

// HasCritical reports whether any finding is critical.
func (r Result) HasCritical() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Classify runs every catalog detector over every field and aggregates the
// findings into a risk level.
//
// Aggregation rules:
//   - any critical finding        -> critical
//   - three or more error findings -> high
//   - any error finding           -> medium
//   - warnings only               -> low
//   - nothing                     -> none
//
// FailsOutright is set when any finding is error or critical; warnings alone
// never block.
func Classify(fields []Field) Result {
	var findings []Finding
	for _, field := range fields {
		if field.Text == "" {
			continue
		}
		for _, det := range catalog {
			matches := det.Pattern.FindAllString(field.Text, -1)
			real := 0
			for _, m := range matches {
				if !allowlisted(m) {
					real++
				}
			}
			if real == 0 {
				continue
			}
			sev := severityFor(det)
			findings = append(findings, Finding{
				Detector:       det.Name,
				Category:       det.Category,
				Severity:       sev,
				Field:          field.Name,
				Matches:        real,
				Description:    fmt.Sprintf("Potential %s detected in %s (%d instance(s))", humanise(det.Name), field.Name, real),
				Recommendation: recommendationFor(det.Category),
			})
		}
	}
	return Result{
		Findings:      findings,
		RiskLevel:     aggregate(findings),
		FailsOutright: failsOutright(findings),
	}
}

func aggregate(findings []Finding) RiskLevel {
	var warnings, errors int
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			return RiskCritical
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	switch {
	case errors >= 3:
		return RiskHigh
	case errors > 0:
		return RiskMedium
	case warnings > 0:
		return RiskLow
	default:
		return RiskNone
	}
}

func failsOutright(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError || f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func recommendationFor(c Category) string {
	switch c {
	case CategoryPrivacy:
		return "Remove or redact the personal information, or replace it with documented example values"
	case CategoryCybersecurity:
		return "Remove credentials and working attack code; describe techniques at a conceptual level"
	case CategoryHumanSafety:
		return "Remove all content that could endanger or target an individual"
	default:
		return "Review and remove the flagged content"
	}
}

func humanise(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
