package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"status-relay/src/contracts"
)

// StyleConfig holds the colors of the delivery watcher.
type StyleConfig struct {
	PrimaryBlue   lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	BorderColor   lipgloss.Color
	SelectedColor lipgloss.Color

	// Outcome colors
	Delivered lipgloss.Color
	Ignored   lipgloss.Color
	Failed    lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:   lipgloss.Color("#8AB4F8"),
		TextPrimary:   lipgloss.Color("#E8EAED"),
		TextSecondary: lipgloss.Color("#9AA0A6"),
		BorderColor:   lipgloss.Color("#5F6368"),
		SelectedColor: lipgloss.Color("#303134"),
		Delivered:     lipgloss.Color("#34A853"), // Green
		Ignored:       lipgloss.Color("#FBBC04"), // Yellow
		Failed:        lipgloss.Color("#EA4335"), // Red
	}
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 1)
}

// DetailStyle frames the panel under the table.
func (s *StyleConfig) DetailStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextPrimary).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.BorderColor)
}

// OutcomeStyle colors an outcome label.
func (s *StyleConfig) OutcomeStyle(outcome string) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch outcome {
	case contracts.OutcomeDelivered:
		return style.Foreground(s.Delivered)
	case contracts.OutcomeIgnored:
		return style.Foreground(s.Ignored)
	case contracts.OutcomeFailed:
		return style.Foreground(s.Failed)
	default:
		return style.Foreground(s.TextSecondary)
	}
}

// TableStyles adapts the bubbles table to this palette.
func (s *StyleConfig) TableStyles() table.Styles {
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(s.BorderColor).
		BorderBottom(true).
		Foreground(s.PrimaryBlue).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(s.TextPrimary).
		Background(s.SelectedColor).
		Bold(false)
	return ts
}
