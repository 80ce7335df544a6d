package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"pacetracker/internal/store"
	"pacetracker/internal/timer"
)

const sessionsLimit = 50

// SessionsModel lists saved sessions
type SessionsModel struct {
	history  History
	sessions []store.Session
	cursor   int
	loading  bool
	err      error
	now      func() time.Time
}

// NewSessionsModel creates the sessions screen
func NewSessionsModel(h History) SessionsModel {
	return SessionsModel{
		history: h,
		loading: true,
		now:     time.Now,
	}
}

type sessionsLoadedMsg struct {
	sessions []store.Session
	err      error
}

// showSessionEventsMsg asks the app to open the events of one session
type showSessionEventsMsg struct {
	sessionID string
}

// Init loads the session list
func (m SessionsModel) Init() tea.Cmd {
	return m.load
}

func (m SessionsModel) load() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sessions, err := m.history.ListSessions(ctx, sessionsLimit)
	return sessionsLoadedMsg{sessions: sessions, err: err}
}

// Update handles messages
func (m SessionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.sessions = msg.sessions
		if m.cursor >= len(m.sessions) {
			m.cursor = max(len(m.sessions)-1, 0)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.sessions)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "r":
			m.loading = true
			return m, m.load
		case "enter":
			if len(m.sessions) > 0 {
				id := m.sessions[m.cursor].ID
				return m, func() tea.Msg { return showSessionEventsMsg{sessionID: id} }
			}
		}
	}
	return m, nil
}

// View renders the sessions screen
func (m SessionsModel) View() string {
	if m.loading {
		return "\n  Loading sessions..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.sessions) == 0 {
		return "\n  No saved sessions yet. Start one on the training screen."
	}

	header := tableHeaderStyle.Render(fmt.Sprintf("%-16s %-8s %9s %9s %9s %8s", "Started", "Mode", "Time", "Best", "Last", "Fixes"))

	rows := []string{header}
	for i, s := range m.sessions {
		line := fmt.Sprintf("%-16s %-8s %9s %9s %9s %8s",
			humanize.RelTime(s.StartedAt, m.now(), "ago", "from now"),
			s.Mode,
			timer.FormatElapsed(s.Elapsed),
			FormatPacePtr(s.BestPace),
			FormatPacePtr(s.LastPace),
			humanize.Comma(int64(s.Accepted)),
		)
		if i == m.cursor {
			rows = append(rows, tableSelectedStyle.Render(line))
		} else {
			rows = append(rows, tableRowStyle.Render(line))
		}
	}

	footer := statusStyle.Render("  j/k: move  enter: session events  r: refresh")
	return lipgloss.JoinVertical(lipgloss.Left, strings.Join(rows, "\n"), footer)
}
