package security

import (
	"regexp"
	"strings"

	"qala.org/internal/obs"
)

// The portal has no SQL backend in its default configuration; the sanitizer
// exists to strip classic injection tokens from free-text input all the same.
var sqlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`;`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*`),
	regexp.MustCompile(`\*/`),
	regexp.MustCompile(`(?i)xp_`),
	regexp.MustCompile(`(?i)UNION`),
	regexp.MustCompile(`(?i)SELECT`),
	regexp.MustCompile(`(?i)DROP`),
	regexp.MustCompile(`(?i)INSERT`),
	regexp.MustCompile(`(?i)DELETE`),
	regexp.MustCompile(`(?i)UPDATE`),
}

// Sanitize strips known dangerous tokens (case-insensitive), logging each
// detection, then escapes single quotes by doubling them.
func Sanitize(input string) string {
	cleaned := input
	for _, pattern := range sqlPatterns {
		if pattern.MatchString(cleaned) {
			obs.Trace("security.injection_detected", map[string]any{
				"pattern": pattern.String(),
			})
			cleaned = pattern.ReplaceAllString(cleaned, "")
		}
	}
	return strings.ReplaceAll(cleaned, "'", "''")
}
