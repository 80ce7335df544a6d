package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pacetracker/internal/eventlog"
	"pacetracker/internal/observable"
	"pacetracker/internal/pace"
	"pacetracker/internal/session"
	"pacetracker/internal/store"
)

// Screen identifiers
type Screen int

const (
	ScreenTraining Screen = iota
	ScreenSessions
	ScreenEvents
	ScreenHelp
)

const refreshInterval = 250 * time.Millisecond

// Workout is the controller surface the UI drives
type Workout interface {
	Start()
	Stop()
	Save()
	ChangeMode() bool
	State() session.State
	Pace() observable.Reader[pace.Update]
}

// History is the persisted data the UI browses
type History interface {
	ListSessions(ctx context.Context, limit int) ([]store.Session, error)
	RecentEvents(ctx context.Context, limit int) ([]eventlog.Entry, error)
	SessionEvents(ctx context.Context, sessionID string) ([]eventlog.Entry, error)
}

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	training TrainingModel
	sessions SessionsModel
	events   EventsModel
	help     HelpModel

	paceCh     <-chan pace.Update
	cancelPace func()

	// Window dimensions
	width  int
	height int
}

// NewApp creates the app. accBad is the accuracy cutoff shown as weak signal.
func NewApp(w Workout, h History, accBad float64) *App {
	ch, cancel := w.Pace().Subscribe()
	return &App{
		screen:     ScreenTraining,
		training:   NewTrainingModel(w, accBad),
		sessions:   NewSessionsModel(h),
		events:     NewEventsModel(h, 0, 0),
		help:       NewHelpModel(),
		paceCh:     ch,
		cancelPace: cancel,
	}
}

// Close releases the pace subscription
func (a *App) Close() {
	a.cancelPace()
}

type tickMsg time.Time

type paceMsg pace.Update

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// waitForPace blocks on the subscription and yields the next update
func waitForPace(ch <-chan pace.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return paceMsg(u)
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return tea.Batch(tick(), waitForPace(a.paceCh), a.training.Init())
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "1":
			a.screen = ScreenTraining
			return a, nil
		case "2":
			a.screen = ScreenSessions
			return a, a.sessions.Init()
		case "3":
			a.screen = ScreenEvents
			a.events = a.events.ForSession("")
			return a, a.events.Init()
		case "?":
			if a.screen != ScreenHelp {
				a.prevScreen = a.screen
				a.screen = ScreenHelp
			}
			return a, nil
		case "esc":
			if a.screen == ScreenHelp {
				a.screen = a.prevScreen
				return a, nil
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		var m tea.Model
		var cmd tea.Cmd
		m, cmd = a.events.Update(msg)
		a.events = m.(EventsModel)
		return a, cmd

	case tickMsg, paceMsg:
		// The training screen tracks state even while another screen is shown
		var m tea.Model
		var cmd tea.Cmd
		m, cmd = a.training.Update(msg)
		a.training = m.(TrainingModel)
		cmds = append(cmds, cmd)
		if _, ok := msg.(tickMsg); ok {
			cmds = append(cmds, tick())
		} else {
			cmds = append(cmds, waitForPace(a.paceCh))
		}
		return a, tea.Batch(cmds...)

	case showSessionEventsMsg:
		a.screen = ScreenEvents
		a.events = a.events.ForSession(msg.sessionID)
		return a, a.events.Init()
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenTraining:
		var m tea.Model
		m, cmd = a.training.Update(msg)
		a.training = m.(TrainingModel)
	case ScreenSessions:
		var m tea.Model
		m, cmd = a.sessions.Update(msg)
		a.sessions = m.(SessionsModel)
	case ScreenEvents:
		var m tea.Model
		m, cmd = a.events.Update(msg)
		a.events = m.(EventsModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	var content string
	switch a.screen {
	case ScreenTraining:
		content = a.training.View()
	case ScreenSessions:
		content = a.sessions.View()
	case ScreenEvents:
		content = a.events.View()
	case ScreenHelp:
		content = a.help.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, a.renderHeader(), a.renderNav(), content)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("Pace Tracker")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Training", ScreenTraining},
		{"2", "Sessions", ScreenSessions},
		{"3", "Events", ScreenEvents},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}
