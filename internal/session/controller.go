package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pacetracker/internal/eventlog"
	"pacetracker/internal/modes"
	"pacetracker/internal/observable"
	"pacetracker/internal/pace"
)

// WorkoutState is Idle (no session) or Active (session in progress, possibly paused)
type WorkoutState int

const (
	Idle WorkoutState = iota
	Active
)

func (s WorkoutState) String() string {
	if s == Active {
		return "ACTIVE"
	}
	return "IDLE"
}

// Config holds the filter thresholds and the starting mode
type Config struct {
	StopThreshold   float64
	AccBadThreshold float64
	Mode            modes.Mode
}

// DefaultConfig returns the stock thresholds with Running selected
func DefaultConfig() Config {
	return Config{
		StopThreshold:   pace.DefaultStopThreshold,
		AccBadThreshold: pace.DefaultAccBadThreshold,
		Mode:            modes.Running,
	}
}

// State is a point-in-time copy of every observable
type State struct {
	Workout   WorkoutState
	Tracking  bool
	Mode      modes.Mode
	Pace      pace.Update
	Accuracy  float64
	SessionID string
	Elapsed   time.Duration
}

const saveNote = "Tracking saved and repository reset"

// Controller owns the workout lifecycle and feeds location samples through
// the pace calculator. All mutations are serialized on mu; observers read the
// published values without taking it.
type Controller struct {
	mu     sync.Mutex
	calc   *pace.Calculator
	accBad float64
	deps   Deps
	wg     sync.WaitGroup

	pace      *observable.Value[pace.Update]
	tracking  *observable.Value[bool]
	workout   *observable.Value[WorkoutState]
	mode      *observable.Value[modes.Mode]
	accuracy  *observable.Value[float64]
	sessionID *observable.Value[string]

	signalOK bool
	stats    sessionStats
}

type sessionStats struct {
	startedAt time.Time
	samples   int
	accepted  int
	best      float64
	last      float64
}

// New creates an idle controller. It panics on an unknown mode or
// non-positive thresholds.
func New(cfg Config, deps Deps) *Controller {
	if !cfg.Mode.Valid() {
		panic(fmt.Sprintf("session: invalid activity mode %d", int(cfg.Mode)))
	}
	return &Controller{
		calc:      pace.NewCalculator(cfg.StopThreshold, cfg.AccBadThreshold),
		accBad:    cfg.AccBadThreshold,
		deps:      deps.withDefaults(),
		pace:      observable.NewValue(pace.Update{Text: pace.Placeholder}),
		tracking:  observable.NewValue(false),
		workout:   observable.NewValue(Idle),
		mode:      observable.NewValue(cfg.Mode),
		accuracy:  observable.NewValue(0.0),
		sessionID: observable.NewValue(""),
		signalOK:  true,
	}
}

// Pace is the latest accepted pace
func (c *Controller) Pace() observable.Reader[pace.Update] { return c.pace }

// Tracking reports whether samples are being processed
func (c *Controller) Tracking() observable.Reader[bool] { return c.tracking }

// Workout is the lifecycle state
func (c *Controller) Workout() observable.Reader[WorkoutState] { return c.workout }

// Mode is the active training mode
func (c *Controller) Mode() observable.Reader[modes.Mode] { return c.mode }

// Accuracy is the last GPS accuracy in meters, 0 when unknown
func (c *Controller) Accuracy() observable.Reader[float64] { return c.accuracy }

// SessionID is the current session id, empty when no session exists
func (c *Controller) SessionID() observable.Reader[string] { return c.sessionID }

// Elapsed is the clock's elapsed time
func (c *Controller) Elapsed() observable.Reader[time.Duration] { return c.deps.Clock.Elapsed() }

// State returns a consistent copy of all observables
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Start begins or resumes tracking. A new session id is assigned when none
// exists, and the calculator is reset only when coming from Idle.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID.Get() == "" {
		now := c.deps.Now()
		c.sessionID.Set(c.deps.NewID(now))
		c.stats = sessionStats{startedAt: now}
	}

	wasIdle := c.workout.Get() == Idle
	c.tracking.Set(true)
	c.workout.Set(Active)
	c.signalOK = true
	c.deps.Clock.Start()
	if wasIdle {
		c.calc.Reset()
	}

	c.deps.Logger.Info("workout started", "session", c.sessionID.Get(), "mode", c.mode.Get(), "resumed", !wasIdle)
	c.emit(eventlog.TypeWorkoutStarted, eventlog.SourceService, "session.Controller.Start", "")
}

// Stop pauses tracking. The session stays Active and keeps its id. Stopping
// an idle controller does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.workout.Get() == Idle && !c.tracking.Get() {
		return
	}

	c.tracking.Set(false)
	c.accuracy.Set(0)
	c.deps.Clock.Stop()

	c.deps.Logger.Info("workout paused", "session", c.sessionID.Get())
	c.emit(eventlog.TypeWorkoutStopped, eventlog.SourceService, "session.Controller.Stop", "")
}

// Save finalizes the session and returns the controller to Idle
func (c *Controller) Save() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.sessionID.Get()

	c.tracking.Set(false)
	c.deps.Clock.Stop()
	elapsed := c.deps.Clock.Elapsed().Get()
	c.deps.Clock.Reset()
	c.calc.Reset()
	c.accuracy.Set(0)
	c.workout.Set(Idle)
	c.sessionID.Set("")

	if id != "" && c.deps.Recorder != nil {
		c.record(Summary{
			ID:        id,
			Mode:      c.mode.Get(),
			StartedAt: c.stats.startedAt,
			EndedAt:   c.deps.Now(),
			Elapsed:   elapsed,
			Samples:   c.stats.samples,
			Accepted:  c.stats.accepted,
			BestPace:  c.stats.best,
			LastPace:  c.stats.last,
		})
	}
	c.stats = sessionStats{}

	c.deps.Logger.Info("workout saved", "session", id, "elapsed", elapsed)
	c.emit(eventlog.TypeServiceStopped, eventlog.SourceUI, "session.Controller.Save", saveNote)
}

// ChangeMode advances to the next mode and resets smoothing. It is ignored
// unless the workout is Idle, and reports whether the mode changed.
func (c *Controller) ChangeMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := c.workout.Get() == Idle
	note := ""
	if changed {
		c.mode.Set(modes.Next(c.mode.Get()))
		c.calc.Reset()
		c.deps.Logger.Info("mode changed", "mode", c.mode.Get())
	} else {
		note = "ignored: workout active"
		c.deps.Logger.Debug("mode change ignored while active")
	}

	c.emit(eventlog.TypeModeChanged, eventlog.SourceUI, "session.Controller.ChangeMode", note)
	return changed
}

// OnSample processes one location fix. Samples arriving while tracking is off
// are dropped. ok is false when nothing was published.
func (c *Controller) OnSample(speed, accuracy float64) (pace.Update, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.tracking.Get() {
		return pace.Update{}, false
	}

	c.stats.samples++
	c.accuracy.Set(accuracy)
	c.trackSignal(accuracy)

	m := c.mode.Get()
	u, ok := c.calc.Calculate(speed, accuracy, m.MaxSpeed(), m.Alpha)
	if !ok {
		c.deps.Logger.Debug("sample discarded", "speed", speed, "accuracy", accuracy)
		return pace.Update{}, false
	}

	c.stats.accepted++
	if u.Value > 0 {
		c.stats.last = u.Value
		if c.stats.best == 0 || u.Value < c.stats.best {
			c.stats.best = u.Value
		}
	}

	c.pace.Set(u)
	c.deps.Wear.Push(u.Text, c.deps.Now())
	c.deps.Logger.Debug("pace", "speed", speed, "accuracy", accuracy, "pace", u.Text)
	return u, true
}

// Close waits for in-flight session recordings
func (c *Controller) Close() {
	c.wg.Wait()
}

// trackSignal emits GPS_SIGNAL_CHANGED when a fix crosses the accuracy cutoff
func (c *Controller) trackSignal(accuracy float64) {
	ok := accuracy <= c.accBad
	if ok == c.signalOK {
		return
	}
	c.signalOK = ok
	note := "signal ok"
	if !ok {
		note = "signal weak"
	}
	c.emit(eventlog.TypeGPSSignalChanged, eventlog.SourceSystem, "session.Controller.OnSample", note)
}

func (c *Controller) record(s Summary) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.deps.Recorder.SaveSession(ctx, s); err != nil {
			c.deps.Logger.Warn("saving session", "session", s.ID, "err", err)
		}
	}()
}

func (c *Controller) stateLocked() State {
	return State{
		Workout:   c.workout.Get(),
		Tracking:  c.tracking.Get(),
		Mode:      c.mode.Get(),
		Pace:      c.pace.Get(),
		Accuracy:  c.accuracy.Get(),
		SessionID: c.sessionID.Get(),
		Elapsed:   c.deps.Clock.Elapsed().Get(),
	}
}

// emit snapshots the current state into an event. Callers hold mu.
func (c *Controller) emit(typ eventlog.Type, src eventlog.Source, origin, note string) {
	st := c.stateLocked()
	e := eventlog.Entry{
		Type:      typ,
		Source:    src,
		Origin:    origin,
		Time:      c.deps.Now(),
		SessionID: st.SessionID,
	}

	if st.SessionID != "" {
		acc := st.Accuracy
		e.Session = &eventlog.SessionData{
			WorkoutState:   st.Workout.String(),
			IsTracking:     st.Tracking,
			ActivityMode:   st.Mode.Label(),
			PaceText:       st.Pace.Text,
			TrainingTimeMs: st.Elapsed.Milliseconds(),
			GPSAccuracyM:   &acc,
			Note:           note,
		}
	} else {
		e.App = &eventlog.AppData{
			WorkoutState: st.Workout.String(),
			Note:         note,
		}
	}

	c.deps.Events.Record(e)
}
