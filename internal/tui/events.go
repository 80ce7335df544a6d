package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pacetracker/internal/eventlog"
)

const eventsLimit = 200

// EventsModel is a scrollable view of the event log
type EventsModel struct {
	history   History
	sessionID string // empty shows recent events from every session
	entries   []eventlog.Entry
	viewport  viewport.Model
	loading   bool
	err       error
	ready     bool
}

// NewEventsModel creates the events screen
func NewEventsModel(h History, width, height int) EventsModel {
	m := EventsModel{
		history: h,
		loading: true,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6) // Reserve space for header/footer
		m.ready = true
	}

	return m
}

// ForSession returns the model switched to one session, or to all events
// when sessionID is empty
func (m EventsModel) ForSession(sessionID string) EventsModel {
	m.sessionID = sessionID
	m.loading = true
	return m
}

type eventsLoadedMsg struct {
	entries []eventlog.Entry
	err     error
}

// Init loads the events
func (m EventsModel) Init() tea.Cmd {
	return m.load
}

func (m EventsModel) load() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var entries []eventlog.Entry
	var err error
	if m.sessionID != "" {
		entries, err = m.history.SessionEvents(ctx, m.sessionID)
	} else {
		entries, err = m.history.RecentEvents(ctx, eventsLimit)
	}
	return eventsLoadedMsg{entries: entries, err: err}
}

// Update handles messages
func (m EventsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.entries = msg.entries
		if m.ready {
			m.viewport.SetContent(m.renderContent())
			m.viewport.GotoBottom()
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		m.viewport.SetContent(m.renderContent())

	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.load
		}
	}

	// Handle viewport scrolling
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the events screen
func (m EventsModel) View() string {
	if m.loading {
		return "\n  Loading events..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	title := "All events"
	if m.sessionID != "" {
		title = "Session " + m.sessionID
	}

	footer := statusStyle.Render("  j/k or arrows: scroll  r: refresh  3: all events")
	return lipgloss.JoinVertical(lipgloss.Left, cardTitleStyle.Render(title), m.viewport.View(), footer)
}

func (m EventsModel) renderContent() string {
	if len(m.entries) == 0 {
		return "No events recorded"
	}

	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		lines = append(lines, FormatEntry(e))
	}
	return strings.Join(lines, "\n")
}

// FormatEntry renders one event as a log line
func FormatEntry(e eventlog.Entry) string {
	parts := []string{
		e.Time.Local().Format("01-02 15:04:05"),
		fmt.Sprintf("%-18s", e.Type),
		fmt.Sprintf("%-8s", e.Source),
	}
	if e.Session != nil {
		parts = append(parts, fmt.Sprintf("%s %s %s", e.Session.ActivityMode, e.Session.WorkoutState, e.Session.PaceText))
	}
	if note := e.Note(); note != "" {
		parts = append(parts, helpDescStyle.Render(note))
	}
	return strings.Join(parts, "  ")
}
