package store

import "time"

// StravaAuth is the stored Strava connection. Scope is the comma separated
// list Strava granted on the consent screen.
type StravaAuth struct {
	AthleteID    int64     `db:"athlete_id"`
	Scope        string    `db:"scope"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// Session is a finished workout
type Session struct {
	ID        string        `db:"id"`
	Mode      string        `db:"mode"`
	StartedAt time.Time     `db:"started_at"`
	EndedAt   time.Time     `db:"ended_at"`
	Elapsed   time.Duration `db:"elapsed_ms"`
	Samples   int           `db:"samples"`
	Accepted  int           `db:"accepted"`
	BestPace  *float64      `db:"best_pace"` // s/km, nullable
	LastPace  *float64      `db:"last_pace"` // s/km, nullable
}
