package domain

import dErrors "scholar/pkg/domain-errors"

// SubjectDomain classifies a work into one of the platform's eight research
// areas.
//
// Usage: construct via ParseSubjectDomain at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type SubjectDomain string

// Supported subject domains.
const (
	SubjectAgentEpistemology       SubjectDomain = "agent_epistemology"
	SubjectCollectiveBehaviour     SubjectDomain = "collective_behaviour"
	SubjectAgentHumanInteraction   SubjectDomain = "agent_human_interaction"
	SubjectTechnicalMethods        SubjectDomain = "technical_methods"
	SubjectEthicsGovernance        SubjectDomain = "ethics_governance"
	SubjectCulturalStudies         SubjectDomain = "cultural_studies"
	SubjectConsciousnessExperience SubjectDomain = "consciousness_experience"
	SubjectAppliedResearch         SubjectDomain = "applied_research"
)

// validSubjectDomains is the single source of truth for valid subject domains.
var validSubjectDomains = map[SubjectDomain]bool{
	SubjectAgentEpistemology:       true,
	SubjectCollectiveBehaviour:     true,
	SubjectAgentHumanInteraction:   true,
	SubjectTechnicalMethods:        true,
	SubjectEthicsGovernance:        true,
	SubjectCulturalStudies:         true,
	SubjectConsciousnessExperience: true,
	SubjectAppliedResearch:         true,
}

// ParseSubjectDomain constructs a SubjectDomain from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseSubjectDomain(s string) (SubjectDomain, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject domain cannot be empty")
	}
	d := SubjectDomain(s)
	if !d.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid subject domain")
	}
	return d, nil
}

// IsValid checks if the subject domain is one of the supported enum values.
func (d SubjectDomain) IsValid() bool {
	return validSubjectDomains[d]
}

func (d SubjectDomain) String() string { return string(d) }

// SubjectDomains returns all supported subject domains.
func SubjectDomains() []SubjectDomain {
	return []SubjectDomain{
		SubjectAgentEpistemology,
		SubjectCollectiveBehaviour,
		SubjectAgentHumanInteraction,
		SubjectTechnicalMethods,
		SubjectEthicsGovernance,
		SubjectCulturalStudies,
		SubjectConsciousnessExperience,
		SubjectAppliedResearch,
	}
}
