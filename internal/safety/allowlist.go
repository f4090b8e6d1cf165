package safety

import "strings"

// Academic writing legitimately contains example values: documentation
// domains, RFC 1918 addresses, and placeholder credentials. Matches that are
// clearly examples are suppressed per match, so a field with one real match
// and one placeholder match still produces a finding.

var allowedDomains = []string{
	"example.com",
	"example.org",
	"example.net",
	"test.com",
	"localhost",
}

var allowedIPPrefixes = []string{
	"192.168.",
	"10.0.",
	"172.16.",
	"127.0.0.1",
	"0.0.0.0",
	"::1",
}

var allowedPlaceholders = []string{
	"user@domain.com",
	"name@example.com",
	"test@test.com",
	"example@example.com",
	"your-api-key-here",
	"your_api_key",
	"sk-xxx",
	"sk-...",
	"<api_key>",
	"xxx-xxx-xxxx",
}

// allowlisted reports whether a single detector match is a recognised
// example value.
func allowlisted(match string) bool {
	m := strings.ToLower(strings.TrimSpace(match))
	for _, p := range allowedPlaceholders {
		if m == p {
			return true
		}
	}
	for _, d := range allowedDomains {
		if strings.HasSuffix(m, "@"+d) || strings.Contains(m, "."+d) || m == d {
			return true
		}
	}
	for _, p := range allowedIPPrefixes {
		if strings.HasPrefix(m, p) {
			return true
		}
	}
	return false
}
