package alertqueue

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Patterns stripped before hashing so that semantically identical alerts
// emitted at different times collapse to the same fingerprint.
var (
	// Lines like "Time: 2024-01-02 15:04:05" or "Timestamp: ...".
	timeLabelLine = regexp.MustCompile(`(?im)^\s*(time|timestamp|at)\s*:.*$`)
	// ISO-ish dates, optionally with a time part: 2024-01-02T15:04:05Z.
	isoDateTime = regexp.MustCompile(`\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}:?\d{2})?)?`)
	// Standalone clock times: 15:04 or 15:04:05.
	clockTime = regexp.MustCompile(`\b\d{1,2}:\d{2}(:\d{2})?\b`)
	// Slash dates: 02/01/2024 or 1/2/24.
	slashDate  = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Fingerprint computes a stable content hash for a message from the given
// service. Volatile substrings (timestamps, time-label lines) are removed and
// whitespace is collapsed first, so two alerts that differ only in embedded
// times hash identically.
func Fingerprint(service, message string) string {
	normalized := normalizeMessage(message)
	sum := sha256.Sum256([]byte(service + ":" + normalized))
	return hex.EncodeToString(sum[:])
}

func normalizeMessage(message string) string {
	s := timeLabelLine.ReplaceAllString(message, "")
	s = isoDateTime.ReplaceAllString(s, "")
	s = clockTime.ReplaceAllString(s, "")
	s = slashDate.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
