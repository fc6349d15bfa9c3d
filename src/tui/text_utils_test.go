package tui

import "testing"

func TestVisualWidth(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello", 5},
		{"", 0},
		{"日本", 4},
		{"café", 4},
	}

	for _, tt := range tests {
		if got := VisualWidth(tt.input); got != tt.expected {
			t.Errorf("VisualWidth(%q) = %d, expected %d", tt.input, got, tt.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		ellipsis bool
		expected string
	}{
		{"fits", "short", 10, true, "short"},
		{"with ellipsis", "Build 42 passed unchanged.", 10, true, "Build 4..."},
		{"without ellipsis", "Build 42 passed unchanged.", 5, false, "Build"},
		{"zero width", "anything", 0, true, ""},
		{"wide runes", "日本語テキスト", 7, true, "日本..."},
		{"trims spaces", "  padded  ", 10, true, "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxLen, tt.ellipsis); got != tt.expected {
				t.Errorf("Truncate(%q, %d, %v) = %q, expected %q", tt.input, tt.maxLen, tt.ellipsis, got, tt.expected)
			}
		})
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"plain", "failed", 10, "failed"},
		{"strips escapes", "\x1b[31mboom\x1b[0m", 10, "boom"},
		{"joins lines", "line one\nline two", 20, "line one line two"},
		{"truncates", "unexpected response: HTTP 502", 12, "unexpecte..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cell(tt.input, tt.width); got != tt.expected {
				t.Errorf("Cell(%q, %d) = %q, expected %q", tt.input, tt.width, got, tt.expected)
			}
		})
	}
}

func TestShortSHA(t *testing.T) {
	if got := ShortSHA("0123456789abcdef"); got != "01234567" {
		t.Errorf("ShortSHA() = %q", got)
	}
	if got := ShortSHA("abc"); got != "abc" {
		t.Errorf("ShortSHA() = %q", got)
	}
}
