// Package pages splits cleaned transcript content into page segments using
// the "# Page N" marker convention produced by transcript exports.
package pages

import (
	"regexp"
	"strings"
)

var marker = regexp.MustCompile(`(?m)^# Page \d+`)

// Split returns the page bodies of cleaned content in order, 1-indexed by
// position. Marker lines are discarded and each body is trimmed; empty
// fragments (such as the one before a leading marker) are dropped. A document
// with no markers is a single page holding the whole trimmed content.
func Split(content string) []string {
	parts := marker.Split(content, -1)
	bodies := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			bodies = append(bodies, part)
		}
	}
	return bodies
}

// Count reports how many pages Split would return.
func Count(content string) int {
	return len(Split(content))
}
