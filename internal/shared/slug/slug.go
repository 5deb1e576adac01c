// Package slug derives URL-safe identifiers from product and category
// names.
package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// FromName lowercases the name and collapses every non-alphanumeric
// run into a single dash. Names with nothing usable left become
// "untitled" so the unique index still has something to hold on to.
func FromName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	return s
}
