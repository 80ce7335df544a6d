package tui

import (
	"fmt"

	"pacetracker/internal/pace"
	"pacetracker/internal/session"
)

// historySize is how many pace points the chart keeps
const historySize = 120

// FormatPacePtr formats a nullable s/km pace
func FormatPacePtr(secPerKm *float64) string {
	if secPerKm == nil || *secPerKm <= 0 {
		return "-"
	}
	return pace.FormatPace(*secPerKm) + "/km"
}

// MinPerKm converts s/km to min/km for charting
func MinPerKm(secPerKm float64) float64 {
	return secPerKm / 60
}

// appendHistory adds a point, keeping the newest historySize
func appendHistory(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historySize {
		h = h[len(h)-historySize:]
	}
	return h
}

// WorkoutLabel distinguishes a paused session from a running one
func WorkoutLabel(st session.State) string {
	switch {
	case st.Workout == session.Idle:
		return "IDLE"
	case st.Tracking:
		return "TRACKING"
	default:
		return "PAUSED"
	}
}

// SignalLabel describes GPS accuracy against the discard cutoff
func SignalLabel(accuracy, accBad float64) string {
	switch {
	case accuracy <= 0:
		return "no fix"
	case accuracy > accBad:
		return fmt.Sprintf("weak (%.0f m)", accuracy)
	default:
		return fmt.Sprintf("good (%.0f m)", accuracy)
	}
}
