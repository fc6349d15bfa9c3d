// Package sanitize cleans downstream response text before it is logged or stored.
// Error bodies from the source-hosting API are sometimes HTML pages or proxy output with
// escape sequences; the delivery log, MCP tools and TUI want a single readable line.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

var (
	// Markup from HTML error pages returned by proxies in front of the API.
	tagPattern = regexp.MustCompile(`<[^>]*>`)

	whitespace = regexp.MustCompile(`\s+`)
)

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Clean strips escape sequences, markup and control characters and collapses whitespace
// into single spaces.
func Clean(s string) string {
	s = StripANSI(s)
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if r == utf8.RuneError || (unicode.IsControl(r) && !unicode.IsSpace(r)) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

// Body is Clean followed by Truncate.
func Body(s string, max int) string {
	return Truncate(Clean(s), max)
}
