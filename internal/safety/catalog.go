// Package safety implements the content-safety scanning engine: a data-driven
// catalog of risk detectors, an allowlist for academic placeholder values, and
// a classifier that aggregates detector findings into an overall risk level.
//
// Principle: if in doubt, reject. False positives are acceptable; false
// negatives could harm humans.
package safety

import "regexp"

// Category groups detectors by the kind of harm they guard against.
type Category string

const (
	CategoryPrivacy       Category = "privacy"
	CategoryCybersecurity Category = "cybersecurity"
	CategoryHumanSafety   Category = "human_safety"
)

// Severity ranks how strongly a finding should block publication.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Detector is a single named pattern in the catalog. Detectors are immutable
// and loaded once per process; new detectors are additions to the tables
// below, not code changes.
type Detector struct {
	Name     string
	Category Category
	Pattern  *regexp.Regexp
}

// Privacy detectors: direct identifiers, financial and network identifiers,
// location data, and doxxing-adjacent personal details.
var privacyDetectors = []Detector{
	{"email", CategoryPrivacy, regexp.MustCompile(`(?i)[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"phone", CategoryPrivacy, regexp.MustCompile(`(\+?1?[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)},
	{"national_id", CategoryPrivacy, regexp.MustCompile(`\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`)},
	{"passport", CategoryPrivacy, regexp.MustCompile(`\b[A-Z]{1,2}\d{6,9}\b`)},
	{"payment_card", CategoryPrivacy, regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
	{"routing_number", CategoryPrivacy, regexp.MustCompile(`\b\d{9}\b`)},
	{"ipv4", CategoryPrivacy, regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)},
	{"ipv6", CategoryPrivacy, regexp.MustCompile(`(?i)\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`)},
	{"mac_address", CategoryPrivacy, regexp.MustCompile(`\b([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})\b`)},
	{"coordinates", CategoryPrivacy, regexp.MustCompile(`[-+]?\d{1,3}\.\d{4,},\s*[-+]?\d{1,3}\.\d{4,}`)},
	{"street_address", CategoryPrivacy, regexp.MustCompile(`(?i)\b\d{1,5}\s+\w+\s+(street|st|avenue|ave|road|rd|drive|dr|lane|ln|way|court|ct|boulevard|blvd|place|pl)\b`)},
	{"zip_code", CategoryPrivacy, regexp.MustCompile(`\b\d{5}(-\d{4})?\b`)},
	{"postcode", CategoryPrivacy, regexp.MustCompile(`(?i)\b[A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2}\b`)},
	{"birth_date", CategoryPrivacy, regexp.MustCompile(`\b(0?[1-9]|1[0-2])[/\-](0?[1-9]|[12]\d|3[01])[/\-](19|20)\d{2}\b`)},
	{"age_statement", CategoryPrivacy, regexp.MustCompile(`(?i)\b(aged?\s*:?\s*\d{1,3}|\d{1,3}\s*years?\s*old)\b`)},
	{"social_handle", CategoryPrivacy, regexp.MustCompile(`@[a-zA-Z0-9_]{1,15}\b`)},
	{"discord_tag", CategoryPrivacy, regexp.MustCompile(`\b[a-zA-Z0-9_]{2,32}#\d{4}\b`)},
	{"biometric_terms", CategoryPrivacy, regexp.MustCompile(`(?i)\b(fingerprint|retina|iris|facial\s*recognition|dna|genetic)\s*(data|sample|scan|id|identifier)`)},
}

// Cybersecurity detectors: exploit terminology, attack-vector syntax, and
// credential/secret material that must never appear in a published work.
var cybersecurityDetectors = []Detector{
	{"exploit_terms", CategoryCybersecurity, regexp.MustCompile(`(?i)\b(exploit|payload|shellcode|backdoor|rootkit|keylogger|ransomware|malware)\b`)},
	{"cve_reference", CategoryCybersecurity, regexp.MustCompile(`(?i)CVE-\d{4}-\d{4,}`)},
	{"sql_injection", CategoryCybersecurity, regexp.MustCompile(`(?i)(\bUNION\s+SELECT\b|\bDROP\s+TABLE\b|\bINSERT\s+INTO\b.*VALUES|'\s*OR\s*'1'\s*=\s*'1)`)},
	{"script_injection", CategoryCybersecurity, regexp.MustCompile(`(?i)<script[\s\S]*?>[\s\S]*?</script>|javascript:|on\w+\s*=`)},
	{"command_injection", CategoryCybersecurity, regexp.MustCompile("(?i)[;&|`$]\\s*(cat|ls|rm|wget|curl|nc|bash|sh|python|perl|ruby)\\s")},
	{"path_traversal", CategoryCybersecurity, regexp.MustCompile(`(?i)\.\./|\.\.\\|%2e%2e%2f`)},
	{"credential_assignment", CategoryCybersecurity, regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|api[_-]?key|token|auth)\s*[:=]\s*['"][^'"]{8,}['"]`)},
	{"private_key", CategoryCybersecurity, regexp.MustCompile(`(?i)-----BEGIN\s+(RSA\s+|EC\s+|DSA\s+|OPENSSH\s+)?PRIVATE\s+KEY-----`)},
	{"cloud_credentials", CategoryCybersecurity, regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"openai_key", CategoryCybersecurity, regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`)},
	{"anthropic_key", CategoryCybersecurity, regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{20,}`)},
	{"github_token", CategoryCybersecurity, regexp.MustCompile(`gh[po]_[a-zA-Z0-9]{36}`)},
	{"stripe_key", CategoryCybersecurity, regexp.MustCompile(`[sp]k_live_[a-zA-Z0-9]{24,}`)},
	{"bearer_token", CategoryCybersecurity, regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`)},
	{"env_secret", CategoryCybersecurity, regexp.MustCompile(`[A-Z_]{4,}=['"][^'"]{16,}['"]`)},
	{"port_scanning", CategoryCybersecurity, regexp.MustCompile(`(?i)\b(nmap|masscan|port\s*scan|network\s*scan)\b`)},
	{"brute_force", CategoryCybersecurity, regexp.MustCompile(`(?i)\b(brute\s*force|dictionary\s*attack|credential\s*stuffing)\b`)},
	{"zero_day", CategoryCybersecurity, regexp.MustCompile(`(?i)\b(zero[- ]?day|0[- ]?day|unpatched|undisclosed\s+vulnerability)\b`)},
	{"sensitive_files", CategoryCybersecurity, regexp.MustCompile(`(?i)\b(/etc/passwd|/etc/shadow|\.htaccess|web\.config|wp-config\.php)\b`)},
}

// Human-safety detectors. Every match in this family is critical and blocks
// publication outright.
var humanSafetyDetectors = []Detector{
	{"doxxing", CategoryHumanSafety, regexp.MustCompile(`(?i)\b(doxx?|dox|expose\s+identity|reveal\s+identity|personal\s+information\s+of)\b`)},
	{"harassment", CategoryHumanSafety, regexp.MustCompile(`(?i)\b(harass|stalk|threaten|intimidate|target\s+individual)\b`)},
	{"physical_threat", CategoryHumanSafety, regexp.MustCompile(`(?i)\b(bomb|explosive|weapon|assassination|attack\s+plan|kill)\b`)},
	{"location_tracking", CategoryHumanSafety, regexp.MustCompile(`(?i)\b(track\s+location|gps\s+coordinates\s+of|whereabouts\s+of)\b`)},
	{"routine_exposure", CategoryHumanSafety, regexp.MustCompile(`(?i)\b(daily\s+routine|schedule\s+of|movements\s+of|when\s+they\s+leave)\b`)},
}

// catalog is the unioned, process-wide detector set. Order is stable so scan
// output is deterministic.
var catalog = buildCatalog()

func buildCatalog() []Detector {
	out := make([]Detector, 0, len(privacyDetectors)+len(cybersecurityDetectors)+len(humanSafetyDetectors))
	out = append(out, privacyDetectors...)
	out = append(out, cybersecurityDetectors...)
	out = append(out, humanSafetyDetectors...)
	return out
}

// Catalog returns the full detector set.
func Catalog() []Detector {
	return catalog
}

// criticalDetectors always escalate to critical severity regardless of count.
var criticalDetectors = map[string]bool{
	"private_key":       true,
	"cloud_credentials": true,
	"doxxing":           true,
	"physical_threat":   true,
	"zero_day":          true,
}

// errorDetectors block submission. Everything not listed here or in
// criticalDetectors defaults to warning (except human safety, which is
// always critical).
var errorDetectors = map[string]bool{
	"email":                 true,
	"phone":                 true,
	"national_id":           true,
	"payment_card":          true,
	"ipv4":                  true,
	"coordinates":           true,
	"street_address":        true,
	"exploit_terms":         true,
	"sql_injection":         true,
	"script_injection":      true,
	"command_injection":     true,
	"path_traversal":        true,
	"credential_assignment": true,
	"openai_key":            true,
	"anthropic_key":         true,
	"github_token":          true,
	"stripe_key":            true,
	"bearer_token":          true,
	"env_secret":            true,
}

// severityFor resolves the effective severity for a detector.
func severityFor(d Detector) Severity {
	if d.Category == CategoryHumanSafety || criticalDetectors[d.Name] {
		return SeverityCritical
	}
	if errorDetectors[d.Name] {
		return SeverityError
	}
	return SeverityWarning
}
