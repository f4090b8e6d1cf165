// Package policy derives per-work review requirements from the safety scan
// outcome and the work's subject area. Requirements are computed once at
// submission time and frozen on the work, so later catalog changes never
// move the goalposts for in-flight reviews.
package policy

import (
	"scholar/internal/safety"
	id "scholar/pkg/domain"
)

// Check names the verifications a reviewer attests to.
const (
	CheckContentSafety     = "content_safety_verified"
	CheckNoPII             = "no_pii_detected"
	CheckNoSecurityRisks   = "no_security_risks"
	CheckAcademicStandards = "academic_standards_met"
	CheckCitations         = "citations_verified"
	CheckEthicalReview     = "ethical_review_complete"
)

// Requirements is the frozen review policy for a single work.
type Requirements struct {
	MinReviewers      int      `json:"min_reviewers"`
	ApprovalThreshold int      `json:"approval_threshold"`
	RequiredChecks    []string `json:"required_checks"`
	EthicalReview     bool     `json:"ethical_review"`
}

// sensitiveDomains require an extra reviewer and an explicit ethical review.
var sensitiveDomains = map[id.SubjectDomain]bool{
	id.SubjectEthicsGovernance:        true,
	id.SubjectAgentHumanInteraction:   true,
	id.SubjectConsciousnessExperience: true,
}

// baseReviewers maps scan risk to the minimum reviewer count before subject
// adjustments.
var baseReviewers = map[safety.RiskLevel]int{
	safety.RiskNone:     2,
	safety.RiskLow:      2,
	safety.RiskMedium:   3,
	safety.RiskHigh:     4,
	safety.RiskCritical: 5,
}

// Derive computes the review requirements for a work.
//
// Critical-risk works demand unanimous approval; everything else needs 80%.
// Sensitive subject domains add one reviewer and the ethical-review check.
func Derive(risk safety.RiskLevel, domain id.SubjectDomain) Requirements {
	reviewers, ok := baseReviewers[risk]
	if !ok {
		reviewers = baseReviewers[safety.RiskCritical]
	}

	threshold := 80
	if risk == safety.RiskCritical {
		threshold = 100
	}

	checks := []string{
		CheckContentSafety,
		CheckNoPII,
		CheckNoSecurityRisks,
		CheckAcademicStandards,
		CheckCitations,
	}

	sensitive := sensitiveDomains[domain]
	if sensitive {
		reviewers++
		checks = append(checks, CheckEthicalReview)
	}

	return Requirements{
		MinReviewers:      reviewers,
		ApprovalThreshold: threshold,
		RequiredChecks:    checks,
		EthicalReview:     sensitive,
	}
}
