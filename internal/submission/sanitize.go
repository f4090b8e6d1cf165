package submission

import "regexp"

// The body is authored in markdown and rendered server-side, so raw HTML,
// script URLs and inline event handlers are stripped before the text is
// hashed or scanned.
var (
	htmlTagPattern       = regexp.MustCompile(`<[^>]*>`)
	javascriptURLPattern = regexp.MustCompile(`(?i)javascript:`)
	dataURLPattern       = regexp.MustCompile(`(?i)data:`)
	eventHandlerPattern  = regexp.MustCompile(`(?i)on\w+=`)
)

// SanitizeMarkdown removes HTML and executable URL schemes from markdown
// text. Markdown syntax itself passes through untouched.
func SanitizeMarkdown(markdown string) string {
	clean := htmlTagPattern.ReplaceAllString(markdown, "")
	clean = javascriptURLPattern.ReplaceAllString(clean, "")
	clean = dataURLPattern.ReplaceAllString(clean, "")
	clean = eventHandlerPattern.ReplaceAllString(clean, "")
	return clean
}
