package wear

import (
	"encoding/json"
	"fmt"
	"time"
)

// Path identifies pace pushes on the relay
const Path = "/pace_updates"

// DefaultPace is what a watch shows before the first push
const DefaultPace = "0:00"

// Message is one pace push. Timestamp is unix milliseconds.
type Message struct {
	Path      string `json:"path"`
	Pace      string `json:"pace_key"`
	Timestamp int64  `json:"timestamp"`
}

// NewMessage builds a pace push stamped with at
func NewMessage(pace string, at time.Time) Message {
	return Message{Path: Path, Pace: pace, Timestamp: at.UnixMilli()}
}

// Time returns the push timestamp
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// DecodeMessage parses a relay payload
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decoding pace message: %w", err)
	}
	return m, nil
}
