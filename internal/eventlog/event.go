package eventlog

import "time"

// Type identifies what happened
type Type string

const (
	TypeAppStarted       Type = "APP_STARTED"
	TypeServiceStarted   Type = "SERVICE_STARTED"
	TypeServiceStopped   Type = "SERVICE_STOPPED"
	TypeWorkoutStarted   Type = "WORKOUT_STARTED"
	TypeWorkoutStopped   Type = "WORKOUT_STOPPED"
	TypeModeChanged      Type = "MODE_CHANGED"
	TypeWearConnected    Type = "WEAR_CONNECTED"
	TypeGPSSignalChanged Type = "GPS_SIGNAL_CHANGED"
	TypeError            Type = "ERROR"
)

// Source identifies who triggered the event
type Source string

const (
	SourceUI      Source = "UI"
	SourceService Source = "SERVICE"
	SourceSystem  Source = "SYSTEM"
	SourceWear    Source = "WEAR"
	SourceUnknown Source = "UNKNOWN"
)

// SessionData is the state snapshot attached to events recorded during a session
type SessionData struct {
	WorkoutState   string   `json:"workoutState"`
	IsTracking     bool     `json:"isTracking"`
	ActivityMode   string   `json:"activityMode"`
	PaceText       string   `json:"paceText,omitempty"`
	TrainingTimeMs int64    `json:"trainingTimeMs,omitempty"`
	GPSAccuracyM   *float64 `json:"gpsAccuracyM,omitempty"`
	Note           string   `json:"note,omitempty"`
}

// AppData is the payload for events recorded outside a session
type AppData struct {
	WorkoutState string `json:"workoutState,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Note         string `json:"note,omitempty"`
}

// Entry is one line of the event log. Exactly one of Session and App is set
// for events carrying a payload: Session when SessionID is non-empty.
type Entry struct {
	ID        string       `json:"id"`
	Type      Type         `json:"type"`
	Source    Source       `json:"source"`
	Origin    string       `json:"origin,omitempty"`
	Time      time.Time    `json:"t"`
	SessionID string       `json:"sessionId,omitempty"`
	Session   *SessionData `json:"session,omitempty"`
	App       *AppData     `json:"app,omitempty"`
}

// Note returns the free-form note from whichever payload is set. App events
// without a note fall back to their error message.
func (e Entry) Note() string {
	switch {
	case e.Session != nil:
		return e.Session.Note
	case e.App != nil && e.App.Note == "":
		return e.App.ErrorMessage
	case e.App != nil:
		return e.App.Note
	}
	return ""
}
