package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"pacetracker/internal/session"
	"pacetracker/internal/timer"
)

// TrainingModel is the live workout screen
type TrainingModel struct {
	workout Workout
	accBad  float64

	state      session.State
	history    []float64 // min/km
	lastUpdate time.Time
	note       string
	now        func() time.Time
}

// NewTrainingModel creates the training screen
func NewTrainingModel(w Workout, accBad float64) TrainingModel {
	return TrainingModel{
		workout: w,
		accBad:  accBad,
		state:   w.State(),
		now:     time.Now,
	}
}

// Init initializes the training screen
func (m TrainingModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m TrainingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.state = m.workout.State()

	case paceMsg:
		m.state = m.workout.State()
		if msg.Value > 0 && m.state.Workout == session.Active {
			m.history = appendHistory(m.history, MinPerKm(msg.Value))
			m.lastUpdate = m.now()
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "s":
			m.workout.Start()
			m.note = ""
		case "p":
			m.workout.Stop()
			m.note = ""
		case "x":
			if m.state.Workout == session.Idle {
				m.note = "Nothing to save"
				break
			}
			m.workout.Save()
			m.history = nil
			m.lastUpdate = time.Time{}
			m.note = "Session saved"
		case "m":
			if m.workout.ChangeMode() {
				m.note = ""
			} else {
				m.note = "Mode can only be changed before starting"
			}
		}
		m.state = m.workout.State()
	}
	return m, nil
}

// View renders the training screen
func (m TrainingModel) View() string {
	st := m.state

	paceCard := cardStyle.Width(30).Render(lipgloss.JoinVertical(lipgloss.Left,
		cardTitleStyle.Render("Pace (min/km)"),
		paceStyle.Render(st.Pace.Text),
		"",
		RenderMetric("Mode", st.Mode.Label()),
		RenderMetric("State", WorkoutLabel(st), m.stateStyle()),
	))

	lastFix := "-"
	if !m.lastUpdate.IsZero() {
		lastFix = humanize.RelTime(m.lastUpdate, m.now(), "ago", "from now")
	}
	sessionID := st.SessionID
	if sessionID == "" {
		sessionID = "-"
	}

	statsCard := cardStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left,
		cardTitleStyle.Render("Session"),
		RenderMetric("Time", timer.FormatElapsed(st.Elapsed)),
		RenderMetric("GPS", SignalLabel(st.Accuracy, m.accBad), m.signalStyle()),
		RenderMetric("Last update", lastFix),
		RenderMetric("Session", sessionID),
	))

	sections := []string{lipgloss.JoinHorizontal(lipgloss.Top, paceCard, "  ", statsCard)}

	if len(m.history) > 2 {
		chart := asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Precision(2),
			asciigraph.Caption("pace, min/km"),
		)
		sections = append(sections, cardStyle.Render(chart))
	}

	if m.note != "" {
		sections = append(sections, warningStyle.Render("  "+m.note))
	}

	help := []string{"s: start", "p: pause", "x: save", "m: mode"}
	sections = append(sections, statusStyle.Render("  "+strings.Join(help, "  ")))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m TrainingModel) stateStyle() lipgloss.Style {
	switch WorkoutLabel(m.state) {
	case "TRACKING":
		return successStyle
	case "PAUSED":
		return warningStyle
	}
	return metricValueStyle
}

func (m TrainingModel) signalStyle() lipgloss.Style {
	switch {
	case m.state.Accuracy <= 0:
		return metricValueStyle
	case m.state.Accuracy > m.accBad:
		return errorStyle
	}
	return successStyle
}

