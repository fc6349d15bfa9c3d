package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, accounting for multi-byte characters
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate cuts text to maxLen display columns, ending with "..." when ellipsis is set.
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}
	if VisualWidth(s) <= maxLen {
		return s
	}
	if ellipsis && maxLen > 3 {
		return runewidth.Truncate(s, maxLen-3, "") + "..."
	}
	return runewidth.Truncate(s, maxLen, "")
}

// Cell prepares a value for a table cell: escape sequences removed, one line,
// at most width columns.
func Cell(s string, width int) string {
	s = ansi.Strip(s)
	s = strings.Join(strings.Fields(s), " ")
	return Truncate(s, width, true)
}

// ShortSHA shortens a commit hash for display.
func ShortSHA(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
