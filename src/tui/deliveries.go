// Package tui provides the terminal delivery watcher for the status relay.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"status-relay/src/contracts"
)

// DefaultRefreshInterval is how often the watcher reloads the delivery log.
const DefaultRefreshInterval = 2 * time.Second

// fetchTimeout bounds one reload.
const fetchTimeout = 5 * time.Second

// Source loads the deliveries to show, newest first.
type Source func(ctx context.Context) ([]contracts.Delivery, error)

type deliveriesMsg struct {
	deliveries []contracts.Delivery
	at         time.Time
}

type errMsg struct{ err error }

type tickMsg time.Time

// Fixed column widths; the description column takes the rest.
const (
	timeWidth    = 8
	repoWidth    = 14
	commitWidth  = 8
	stateWidth   = 7
	outcomeWidth = 9
	codeWidth    = 4
	minDescWidth = 20
)

// DeliveriesModel is the Bubble Tea model of the delivery watcher.
// Layout: header, table of deliveries, detail panel for the selected row, help.
type DeliveriesModel struct {
	source     Source
	interval   time.Duration
	table      table.Model
	header     Header
	deliveries []contracts.Delivery
	styles     *StyleConfig
	width      int
	height     int
}

// NewDeliveriesModel creates a watcher that reloads from source every interval.
func NewDeliveriesModel(source Source, interval time.Duration) DeliveriesModel {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	styles := DefaultStyles()

	t := table.New(
		table.WithColumns(Columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(styles.TableStyles())

	return DeliveriesModel{
		source:   source,
		interval: interval,
		table:    t,
		header:   NewHeader(styles),
		styles:   styles,
	}
}

// Columns lays out the table for a terminal of the given width.
func Columns(width int) []table.Column {
	fixed := timeWidth + repoWidth + commitWidth + stateWidth + outcomeWidth + codeWidth
	// bubbles pads every cell by one column on each side.
	desc := width - fixed - 2*7
	if desc < minDescWidth {
		desc = minDescWidth
	}
	return []table.Column{
		{Title: "Time", Width: timeWidth},
		{Title: "Repo", Width: repoWidth},
		{Title: "Commit", Width: commitWidth},
		{Title: "State", Width: stateWidth},
		{Title: "Outcome", Width: outcomeWidth},
		{Title: "HTTP", Width: codeWidth},
		{Title: "Description", Width: desc},
	}
}

// Rows renders deliveries as table rows sized to columns.
func Rows(deliveries []contracts.Delivery, columns []table.Column) []table.Row {
	rows := make([]table.Row, 0, len(deliveries))
	for _, d := range deliveries {
		code := ""
		if d.StatusCode > 0 {
			code = strconv.Itoa(d.StatusCode)
		}
		state := d.Descriptor.State
		if state == "" {
			state = "-"
		}
		desc := d.Descriptor.Description
		if d.Outcome == contracts.OutcomeFailed && d.Error != "" {
			desc = d.Error
		}

		values := []string{
			d.CreatedAt.Local().Format("15:04:05"),
			d.Request.Routing.RepoID,
			ShortSHA(d.Request.Build.Commit),
			state,
			d.Outcome,
			code,
			desc,
		}
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = Cell(v, columns[i].Width)
		}
		rows = append(rows, row)
	}
	return rows
}

// Init loads the first page and starts the refresh timer.
func (m DeliveriesModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

func (m DeliveriesModel) fetch() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		deliveries, err := source(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return deliveriesMsg{deliveries: deliveries, at: time.Now()}
	}
}

func (m DeliveriesModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model state.
func (m DeliveriesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(Columns(msg.Width))
		m.table.SetRows(Rows(m.deliveries, m.table.Columns()))
		m.table.SetWidth(msg.Width)
		// header, detail panel (4 lines + border) and help
		m.table.SetHeight(max(3, msg.Height-9))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case deliveriesMsg:
		m.deliveries = msg.deliveries
		m.header.SetDeliveries(msg.deliveries, msg.at)
		m.table.SetRows(Rows(msg.deliveries, m.table.Columns()))
		if m.table.Cursor() >= len(msg.deliveries) {
			m.table.SetCursor(max(0, len(msg.deliveries)-1))
		}
		return m, nil

	case errMsg:
		m.header.SetError(msg.err)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// Selected returns the delivery under the cursor.
func (m DeliveriesModel) Selected() (contracts.Delivery, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.deliveries) {
		return contracts.Delivery{}, false
	}
	return m.deliveries[i], true
}

// View renders the watcher.
func (m DeliveriesModel) View() string {
	var b strings.Builder

	b.WriteString(m.header.Render(m.width))
	b.WriteString("\n")

	if len(m.deliveries) == 0 {
		b.WriteString(m.styles.HelpStyle().Render("No deliveries recorded yet."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
		b.WriteString(m.renderDetail())
		b.WriteString("\n")
	}

	b.WriteString(m.styles.HelpStyle().Render("↑/↓ select • r refresh • q quit"))
	return b.String()
}

func (m DeliveriesModel) renderDetail() string {
	d, ok := m.Selected()
	if !ok {
		return ""
	}

	width := m.width - 4
	if width < minDescWidth {
		width = 76
	}

	lines := []string{
		fmt.Sprintf("%s  build %d %s  credential %s  attempts %d",
			m.styles.OutcomeStyle(d.Outcome).Render(d.Outcome),
			d.Request.Build.Number, d.Request.Build.Status, d.Credential, d.Attempts),
		Cell(d.URL, width),
	}
	if d.Error != "" {
		lines = append(lines, Cell("error: "+d.Error, width))
	} else {
		lines = append(lines, Cell(d.Descriptor.Description, width))
	}
	if d.ReplayOf != "" {
		lines = append(lines, Cell("replay of "+d.ReplayOf, width))
	}

	return m.styles.DetailStyle().Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// Run starts the watcher in the alternate screen and blocks until the user quits.
func Run(source Source, interval time.Duration) error {
	p := tea.NewProgram(NewDeliveriesModel(source, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
