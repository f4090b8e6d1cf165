package policy

import (
	"testing"

	"scholar/internal/safety"
	id "scholar/pkg/domain"

	"github.com/stretchr/testify/suite"
)

// Derivation is pure and its boundaries (risk tiers, sensitive-domain bump,
// unanimity for critical) are exactly what reviewers rely on, so they are
// pinned here.
type PolicySuite struct {
	suite.Suite
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) TestDerive() {
	s.Run("reviewer count scales with risk", func() {
		tests := []struct {
			risk safety.RiskLevel
			want int
		}{
			{safety.RiskNone, 2},
			{safety.RiskLow, 2},
			{safety.RiskMedium, 3},
			{safety.RiskHigh, 4},
			{safety.RiskCritical, 5},
		}
		for _, tt := range tests {
			got := Derive(tt.risk, id.SubjectTechnicalMethods)
			s.Equal(tt.want, got.MinReviewers, string(tt.risk))
		}
	})

	s.Run("critical risk requires unanimous approval", func() {
		s.Equal(100, Derive(safety.RiskCritical, id.SubjectTechnicalMethods).ApprovalThreshold)
	})

	s.Run("non-critical risk requires eighty percent", func() {
		for _, risk := range []safety.RiskLevel{safety.RiskNone, safety.RiskLow, safety.RiskMedium, safety.RiskHigh} {
			s.Equal(80, Derive(risk, id.SubjectTechnicalMethods).ApprovalThreshold, string(risk))
		}
	})

	s.Run("sensitive domain adds one reviewer and the ethical check", func() {
		for _, domain := range []id.SubjectDomain{
			id.SubjectEthicsGovernance,
			id.SubjectAgentHumanInteraction,
			id.SubjectConsciousnessExperience,
		} {
			base := Derive(safety.RiskLow, id.SubjectTechnicalMethods)
			got := Derive(safety.RiskLow, domain)
			s.Equal(base.MinReviewers+1, got.MinReviewers, domain.String())
			s.True(got.EthicalReview)
			s.Contains(got.RequiredChecks, CheckEthicalReview)
		}
	})

	s.Run("non-sensitive domain keeps the base check list", func() {
		got := Derive(safety.RiskNone, id.SubjectCulturalStudies)
		s.False(got.EthicalReview)
		s.NotContains(got.RequiredChecks, CheckEthicalReview)
		s.Len(got.RequiredChecks, 5)
	})

	s.Run("unknown risk level is treated as critical", func() {
		got := Derive(safety.RiskLevel("bogus"), id.SubjectTechnicalMethods)
		s.Equal(5, got.MinReviewers)
	})
}
