package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"status-relay/src/contracts"
)

// Header is the top status bar: title, outcome counts and last refresh.
type Header struct {
	counts  map[string]int
	total   int
	updated time.Time
	err     error
	styles  *StyleConfig
}

// NewHeader creates a new header with the given styles
func NewHeader(styles *StyleConfig) Header {
	return Header{counts: map[string]int{}, styles: styles}
}

// SetDeliveries recounts outcomes.
func (h *Header) SetDeliveries(deliveries []contracts.Delivery, at time.Time) {
	h.counts = map[string]int{}
	for _, d := range deliveries {
		h.counts[d.Outcome]++
	}
	h.total = len(deliveries)
	h.updated = at
	h.err = nil
}

// SetError shows a refresh failure until the next successful refresh.
func (h *Header) SetError(err error) {
	h.err = err
}

// Render returns the header line for the given width.
func (h Header) Render(width int) string {
	title := h.styles.TitleStyle().Render("status-relay deliveries")

	parts := []string{fmt.Sprintf("%d shown", h.total)}
	for _, outcome := range []string{contracts.OutcomeDelivered, contracts.OutcomeIgnored, contracts.OutcomeFailed} {
		parts = append(parts, h.styles.OutcomeStyle(outcome).Render(fmt.Sprintf("%s %d", outcome, h.counts[outcome])))
	}
	summary := strings.Join(parts, "  ")

	status := "loading..."
	if !h.updated.IsZero() {
		status = "updated " + h.updated.Format("15:04:05")
	}
	if h.err != nil {
		status = h.styles.OutcomeStyle(contracts.OutcomeFailed).Render("refresh failed: " + Cell(h.err.Error(), 60))
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", summary, "  ", h.styles.HelpStyle().Render(status))
	if width > 0 {
		return lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	return line
}
