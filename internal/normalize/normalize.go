// Package normalize canonicalizes raw transcript text. All character counts,
// line numbers, and page boundaries elsewhere in the engine are computed
// against the cleaned form, never against raw file bytes.
package normalize

import (
	"regexp"
	"strings"
)

var (
	lineEndings   = regexp.MustCompile(`\r\n?`)
	horizontalRun = regexp.MustCompile(`[ \t]+`)
	newlineRun    = regexp.MustCompile(`\n{3,}`)
	periodRun     = regexp.MustCompile(`\.{4,}`)
	hyphenRun     = regexp.MustCompile(`-{3,}`)
)

// Clean normalizes transcript content: CRLF/CR become LF, runs of spaces and
// tabs collapse to a single space, three or more blank lines collapse to one,
// four or more periods become an ellipsis, three or more hyphens become
// exactly three, and the result is trimmed. Idempotent.
func Clean(content string) string {
	content = lineEndings.ReplaceAllString(content, "\n")
	content = horizontalRun.ReplaceAllString(content, " ")
	content = newlineRun.ReplaceAllString(content, "\n\n")
	content = periodRun.ReplaceAllString(content, "…")
	content = hyphenRun.ReplaceAllString(content, "---")
	return strings.TrimSpace(content)
}
