package strava

import "time"

// Activity is the subset of a Strava activity shown before a replay
type Activity struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	SportType    string    `json:"sport_type"`
	StartDate    time.Time `json:"start_date"`
	Distance     float64   `json:"distance"`      // meters
	MovingTime   int       `json:"moving_time"`   // seconds
	AverageSpeed float64   `json:"average_speed"` // m/s
	MaxSpeed     float64   `json:"max_speed"`     // m/s
}

// Streams holds the streams a replay needs, keyed by type
// (key_by_type=true)
type Streams struct {
	Time           *StreamData[int]     `json:"time"`
	VelocitySmooth *StreamData[float64] `json:"velocity_smooth"`
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// Len returns the length of the time stream, or 0 if nil
func (s *Streams) Len() int {
	if s == nil || s.Time == nil {
		return 0
	}
	return len(s.Time.Data)
}

// HasVelocity reports whether a velocity stream was returned
func (s *Streams) HasVelocity() bool {
	return s != nil && s.VelocitySmooth != nil && len(s.VelocitySmooth.Data) > 0
}

// Offsets returns the time stream in seconds from the start
func (s *Streams) Offsets() []int {
	if s == nil || s.Time == nil {
		return nil
	}
	return s.Time.Data
}

// Velocity returns the smoothed speed stream in m/s
func (s *Streams) Velocity() []float64 {
	if !s.HasVelocity() {
		return nil
	}
	return s.VelocitySmooth.Data
}
