package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"pacetracker/internal/config"
	"pacetracker/internal/eventlog"
	"pacetracker/internal/modes"
	"pacetracker/internal/session"
	"pacetracker/internal/store"
	"pacetracker/internal/timer"
	"pacetracker/internal/wear"
)

// tracker bundles the controller with everything it talks to
type tracker struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *store.DB
	events *eventlog.Log
	redis  *redis.Client
	hub    *wear.Hub
	clock  *timer.Clock
	ctrl   *session.Controller
}

func newLogger(cfg *config.Config, out io.Writer) *slog.Logger {
	level, _ := cfg.SlogLevel()
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// openLogFile opens the process log used while the TUI owns the terminal
func openLogFile() (*os.File, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	return os.OpenFile(filepath.Join(dir, "pacetracker.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

func newTracker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tracker, error) {
	db, err := store.Open()
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	t := &tracker{cfg: cfg, logger: logger, db: db}

	files := eventlog.NewFiles(cfg.Log.Dir, cfg.Log.AppTTLDays, cfg.Log.SessionTTLDays)
	if err := files.EnsureDir(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	t.cleanup(ctx, files)
	t.events = eventlog.New(logger, eventlog.NewFileAppender(files), db)

	if cfg.Wear.RedisAddr != "" {
		t.redis = redis.NewClient(&redis.Options{Addr: cfg.Wear.RedisAddr})
	}
	t.hub = wear.NewHub(t.redis, cfg.Wear.RedisChannel, logger)
	t.hub.OnClientChange(t.recordWatch)
	t.clock = timer.NewClock(timer.DefaultTick)

	mode := t.restoreMode(ctx)
	t.ctrl = session.New(session.Config{
		StopThreshold:   cfg.Filter.StopThreshold,
		AccBadThreshold: cfg.Filter.AccBadThreshold,
		Mode:            mode,
	}, session.Deps{
		Clock:    t.clock,
		Wear:     t.hub,
		Events:   t.events,
		Recorder: sessionRecorder{db: db},
		Logger:   logger,
	})

	t.events.Record(eventlog.Entry{
		Type:   eventlog.TypeAppStarted,
		Source: eventlog.SourceSystem,
		Origin: "main",
		App:    &eventlog.AppData{WorkoutState: session.Idle.String(), Note: "mode " + mode.Label()},
	})
	return t, nil
}

// recordWatch logs watches joining and leaving the relay
func (t *tracker) recordWatch(connected bool, clients int) {
	note := fmt.Sprintf("watch disconnected, %d connected", clients)
	if connected {
		note = fmt.Sprintf("watch connected, %d connected", clients)
	}
	t.events.Record(eventlog.Entry{
		Type:   eventlog.TypeWearConnected,
		Source: eventlog.SourceWear,
		Origin: "wear.Hub",
		App:    &eventlog.AppData{Note: note},
	})
}

// recordError puts a failure from a background task into the event log
func (t *tracker) recordError(origin string, err error) {
	t.logger.Error(origin+" failed", "err", err)
	t.events.Record(eventlog.Entry{
		Type:   eventlog.TypeError,
		Source: eventlog.SourceSystem,
		Origin: origin,
		App:    &eventlog.AppData{ErrorMessage: err.Error()},
	})
}

// cleanup drops event files and rows older than their TTL
func (t *tracker) cleanup(ctx context.Context, files *eventlog.Files) {
	now := time.Now()
	if n, err := files.Cleanup(now); err != nil {
		t.logger.Warn("cleaning event files", "err", err)
	} else if n > 0 {
		t.logger.Info("removed old event files", "count", n)
	}

	ttl := max(t.cfg.Log.AppTTLDays, t.cfg.Log.SessionTTLDays)
	if ttl <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -ttl)
	if n, err := t.db.DeleteEventsBefore(ctx, cutoff); err != nil {
		t.logger.Warn("cleaning stored events", "err", err)
	} else if n > 0 {
		t.logger.Info("removed old stored events", "count", n)
	}
}

// restoreMode prefers the mode selected last time over the configured one
func (t *tracker) restoreMode(ctx context.Context) modes.Mode {
	saved, err := t.db.GetState(ctx, store.KeyActivityMode)
	if err != nil {
		t.logger.Warn("reading saved mode", "err", err)
	}
	if saved != "" {
		if m, err := modes.Parse(saved); err == nil {
			return m
		}
	}
	return t.cfg.Mode()
}

// selectMode switches an idle controller to m for a one-off run. The returned
// func switches back so the mode saved on close is the user's choice.
func (t *tracker) selectMode(m modes.Mode) func() {
	prev := t.ctrl.State().Mode
	t.cycleTo(m)
	return func() { t.cycleTo(prev) }
}

func (t *tracker) cycleTo(m modes.Mode) {
	for range modes.All() {
		if t.ctrl.State().Mode == m || !t.ctrl.ChangeMode() {
			return
		}
	}
}

// serveRelay runs the hub and the watch websocket until ctx is done
func (t *tracker) serveRelay(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/pace", wear.Handler(t.hub))
	srv := &http.Server{Addr: t.cfg.Wear.ListenAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 2)
	go func() { errc <- t.hub.Run(ctx) }()
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("relay server: %w", err)
		}
	}()
	t.logger.Info("watch relay listening", "addr", t.cfg.Wear.ListenAddr, "redis", t.cfg.Wear.RedisAddr != "")
	t.events.Record(eventlog.Entry{
		Type:   eventlog.TypeServiceStarted,
		Source: eventlog.SourceService,
		Origin: "main.serveRelay",
		App:    &eventlog.AppData{Note: "watch relay on " + t.cfg.Wear.ListenAddr},
	})

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	return err
}

// close saves an unfinished session and the mode, then flushes and
// releases everything
func (t *tracker) close() {
	if t.ctrl.State().Workout == session.Active {
		t.logger.Info("saving unfinished session on exit")
		t.ctrl.Save()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := t.db.SetState(ctx, store.KeyActivityMode, t.ctrl.State().Mode.String()); err != nil {
		t.logger.Warn("saving mode", "err", err)
	}

	t.ctrl.Close()
	t.clock.Close()
	t.events.Close()
	if dropped := t.events.Dropped(); dropped > 0 {
		t.logger.Warn("events dropped", "count", dropped)
	}
	if t.redis != nil {
		t.redis.Close()
	}
	t.db.Close()
}

// sessionRecorder stores finished sessions
type sessionRecorder struct {
	db *store.DB
}

func (r sessionRecorder) SaveSession(ctx context.Context, s session.Summary) error {
	return r.db.SaveSession(ctx, toStoreSession(s))
}

func toStoreSession(s session.Summary) *store.Session {
	out := &store.Session{
		ID:        s.ID,
		Mode:      s.Mode.String(),
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Elapsed:   s.Elapsed,
		Samples:   s.Samples,
		Accepted:  s.Accepted,
	}
	if s.BestPace > 0 {
		best := s.BestPace
		out.BestPace = &best
	}
	if s.LastPace > 0 {
		last := s.LastPace
		out.LastPace = &last
	}
	return out
}
