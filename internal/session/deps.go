package session

import (
	"context"
	"io"
	"log/slog"
	"time"

	"pacetracker/internal/eventlog"
	"pacetracker/internal/modes"
	"pacetracker/internal/observable"
)

// Clock is the workout's elapsed-time clock
type Clock interface {
	Start()
	Stop()
	Reset()
	Elapsed() *observable.Value[time.Duration]
}

// PaceSink receives formatted pace pushes for the wearable. Push must not block.
type PaceSink interface {
	Push(paceText string, at time.Time)
}

// EventSink receives lifecycle events. Record must not block.
type EventSink interface {
	Record(e eventlog.Entry)
}

// Summary describes a finished session
type Summary struct {
	ID        string
	Mode      modes.Mode
	StartedAt time.Time
	EndedAt   time.Time
	Elapsed   time.Duration
	Samples   int     // samples seen while tracking
	Accepted  int     // samples that produced a pace update
	BestPace  float64 // lowest smoothed pace in s/km, 0 if none
	LastPace  float64 // last non-zero smoothed pace in s/km
}

// Recorder persists finished sessions. It is called on its own goroutine.
type Recorder interface {
	SaveSession(ctx context.Context, s Summary) error
}

// Deps are the controller's external collaborators. Nil fields get no-op defaults.
type Deps struct {
	Clock    Clock
	Wear     PaceSink
	Events   EventSink
	Recorder Recorder
	NewID    func(time.Time) string
	Now      func() time.Time
	Logger   *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = &nopClock{elapsed: observable.NewValue(time.Duration(0))}
	}
	if d.Wear == nil {
		d.Wear = nopSink{}
	}
	if d.Events == nil {
		d.Events = nopSink{}
	}
	if d.NewID == nil {
		d.NewID = NewID
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d
}

type nopClock struct {
	elapsed *observable.Value[time.Duration]
}

func (*nopClock) Start()                                      {}
func (*nopClock) Stop()                                       {}
func (c *nopClock) Reset()                                    { c.elapsed.Set(0) }
func (c *nopClock) Elapsed() *observable.Value[time.Duration] { return c.elapsed }

type nopSink struct{}

func (nopSink) Push(string, time.Time) {}
func (nopSink) Record(eventlog.Entry)  {}
