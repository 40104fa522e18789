package logging

import "regexp"

// Provider errors routinely echo request headers or URLs back at the
// caller. These patterns mask credential material in free text before it
// reaches the terminal or a persisted conversation.
var (
	bearerPattern   = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/=-]+`)
	keyValuePattern = regexp.MustCompile(`(?i)(api[_-]?key|access[_-]?token|token|secret|password|auth)(=|:\s*"?)[^&\s"']+`)
	keyShapePattern = regexp.MustCompile(`\b(sk|pk|pplx|xai)-[A-Za-z0-9_-]{8,}\b`)
)

// Redact masks credentials embedded in s. Safe to call on text that
// contains none.
func Redact(s string) string {
	s = bearerPattern.ReplaceAllString(s, "${1}[REDACTED]")
	s = keyValuePattern.ReplaceAllString(s, "${1}${2}[REDACTED]")
	s = keyShapePattern.ReplaceAllString(s, "[REDACTED]")
	return s
}
