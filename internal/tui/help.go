package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModel is the help screen model
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Init initializes the help screen
func (m HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the help screen
func (m HelpModel) View() string {
	sections := []string{
		cardTitleStyle.Render("Keyboard Shortcuts"),
		m.renderSection("Navigation", []keyHelp{
			{"1", "Training"},
			{"2", "Saved sessions"},
			{"3", "Event log"},
			{"?", "Help (this screen)"},
			{"esc", "Close help"},
			{"q", "Quit"},
		}),
		m.renderSection("Training", []keyHelp{
			{"s", "Start, or resume a paused session"},
			{"p", "Pause tracking"},
			{"x", "Save the session and reset"},
			{"m", "Switch running / walking (before starting)"},
		}),
		m.renderSection("Sessions and Events", []keyHelp{
			{"j / k", "Move or scroll"},
			{"enter", "Show the events of a session"},
			{"r", "Reload"},
		}),
		m.renderPaceHelp(),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type keyHelp struct {
	key  string
	desc string
}

func (m HelpModel) renderSection(title string, keys []keyHelp) string {
	lines := []string{"", successStyle.Bold(true).Render(title)}
	for _, k := range keys {
		lines = append(lines, "  "+RenderKeyHelp(k.key, k.desc))
	}
	return strings.Join(lines, "\n")
}

func (m HelpModel) renderPaceHelp() string {
	lines := []string{"", successStyle.Bold(true).Render("Reading the pace"), ""}

	notes := []struct {
		name string
		desc string
	}{
		{"Smoothing", "Pace is averaged; better GPS fixes move it faster."},
		{"0:00", "Shown while stopped or before the first fix."},
		{"Weak GPS", "Fixes worse than the accuracy cutoff are ignored."},
		{"Mode", "Walking ignores speeds a walker can't reach."},
	}

	for _, n := range notes {
		lines = append(lines, "  "+helpKeyStyle.Render(n.name))
		lines = append(lines, "  "+helpDescStyle.Render(n.desc))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
