package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/oauth2"

	"pacetracker/internal/auth"
	"pacetracker/internal/config"
	"pacetracker/internal/modes"
	"pacetracker/internal/replay"
	"pacetracker/internal/store"
	"pacetracker/internal/strava"
	"pacetracker/internal/timer"
	"pacetracker/internal/tui"
	"pacetracker/internal/wear"
)

// runTrack opens the training screen. With --replay the samples of a CSV
// file stand in for the GPS.
func runTrack(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("pacetracker")
	replayFile := fs.String("replay", "", "feed samples from a CSV file instead of a GPS")
	speedup := fs.Float64("speedup", 1, "replay speed multiplier")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var samples []replay.Sample
	if *replayFile != "" {
		var err error
		if samples, err = readSamples(*replayFile); err != nil {
			return err
		}
	}

	logFile, err := openLogFile()
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	logger := newLogger(cfg, logFile)

	t, err := newTracker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer t.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := t.serveRelay(ctx); err != nil {
			t.recordError("main.serveRelay", err)
		}
	}()

	if samples != nil {
		go func() {
			err := replay.Play(ctx, samples, *speedup, func(s replay.Sample) {
				t.ctrl.OnSample(s.Speed, s.Accuracy)
			})
			switch {
			case err == nil:
				logger.Info("replay finished", "samples", len(samples))
			case !errors.Is(err, context.Canceled):
				t.recordError("replay.Play", err)
			}
		}()
	}

	app := tui.NewApp(t.ctrl, t.db, cfg.Filter.AccBadThreshold)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// runReplay feeds recorded samples through a session and prints every pace
// update
func runReplay(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("replay")
	activityID := fs.Int64("strava", 0, "replay a Strava activity instead of a CSV file")
	speedup := fs.Float64("speedup", 0, "replay speed multiplier, 0 for no delay")
	modeName := fs.String("mode", "", "running or walking (default: the last selected mode)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var mode modes.Mode
	if *modeName != "" {
		m, err := modes.Parse(*modeName)
		if err != nil {
			return err
		}
		mode = m
	}

	logger := newLogger(cfg, os.Stderr)

	var samples []replay.Sample
	var err error
	switch {
	case *activityID != 0:
		samples, err = stravaSamples(ctx, cfg, *activityID)
	case fs.NArg() == 1:
		samples, err = readSamples(fs.Arg(0))
	default:
		fs.Usage()
		return errors.New("replay needs a CSV file or --strava")
	}
	if err != nil {
		return err
	}

	t, err := newTracker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer t.close()

	if *modeName != "" {
		restoreMode := t.selectMode(mode)
		defer restoreMode()
	}

	t.ctrl.Start()
	start := time.Now()
	var offset time.Duration
	err = replay.Play(ctx, samples, *speedup, func(s replay.Sample) {
		offset += s.Delay
		u, ok := t.ctrl.OnSample(s.Speed, s.Accuracy)
		status := "discarded"
		if ok {
			status = u.Text
		}
		fmt.Printf("%8s  %6.2f m/s  %5.1f m  %s\n", timer.FormatElapsed(offset), s.Speed, s.Accuracy, status)
	})
	id := t.ctrl.State().SessionID
	t.ctrl.Save()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// Close waits for the summary to be written
	t.ctrl.Close()
	if saved, err := t.db.GetSession(context.Background(), id); err != nil {
		logger.Warn("reading saved session", "session", id, "err", err)
	} else {
		fmt.Println()
		fmt.Println(sessionLine(saved))
	}

	logger.Info("replay done", "samples", len(samples), "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// sessionLine summarizes a stored session in one line
func sessionLine(s *store.Session) string {
	return fmt.Sprintf("Saved %s  %s  %s  %d/%d samples  best %s  last %s",
		s.ID, s.Mode, timer.FormatElapsed(s.Elapsed), s.Accepted, s.Samples,
		tui.FormatPacePtr(s.BestPace), tui.FormatPacePtr(s.LastPace))
}

// runRelay serves only the watch websocket, fanning pushes out from redis
func runRelay(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("relay")
	addr := fs.String("addr", cfg.Wear.ListenAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Wear.ListenAddr = *addr

	logger := newLogger(cfg, os.Stderr)
	t, err := newTracker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer t.close()

	if cfg.Wear.RedisAddr == "" {
		logger.Warn("no redis configured; the relay only serves pushes from this process")
	}
	return t.serveRelay(ctx)
}

// runWatch connects to a relay the way a watch does and prints every pace
// it would show
func runWatch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("watch")
	url := fs.String("url", relayURL(cfg.Wear.ListenAddr), "relay websocket URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(cfg, os.Stderr)
	r := wear.NewReceiver(*url, logger)

	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()

	fmt.Printf("Watching %s\n\n", *url)
	printPaces(ctx, r, os.Stdout)
	return <-errc
}

// relayURL turns a listen address into the websocket URL watches dial
func relayURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "ws://" + addr + "/pace"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "ws://" + net.JoinHostPort(host, port) + "/pace"
}

// printPaces writes one line per pace change until ctx is done
func printPaces(ctx context.Context, r *wear.Receiver, out io.Writer) {
	paces, cancel := r.Pace().Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-paces:
			fmt.Fprintln(out, watchLine(p, r.Updated().Get()))
		}
	}
}

func watchLine(pace string, at time.Time) string {
	if at.IsZero() {
		return fmt.Sprintf("%8s  %s", "--:--:--", pace)
	}
	return fmt.Sprintf("%8s  %s", at.Local().Format("15:04:05"), pace)
}

func readSamples(path string) ([]replay.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening replay file: %w", err)
	}
	defer f.Close()

	samples, err := replay.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return samples, nil
}

// stravaSamples fetches an activity's speed stream, authenticating first
// when no tokens are stored
func stravaSamples(ctx context.Context, cfg *config.Config, activityID int64) ([]replay.Sample, error) {
	if err := cfg.ValidateStrava(); err != nil {
		return nil, err
	}

	db, err := store.Open()
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
	})

	ts, err := auth.FromStore(ctx, oauthCfg, db)
	if errors.Is(err, store.ErrNoAuth) || errors.Is(err, auth.ErrMissingScope) {
		if err := connectStrava(ctx, db, oauthCfg, os.Stdout); err != nil {
			return nil, fmt.Errorf("authentication: %w", err)
		}
		ts, err = auth.FromStore(ctx, oauthCfg, db)
	}
	if err != nil {
		return nil, fmt.Errorf("loading tokens: %w", err)
	}

	client := strava.NewClient(ts)
	activity, err := client.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	streams, err := client.GetVelocityStream(ctx, activityID)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Replaying %q (%s, %.1f km, %d points)\n\n",
		activity.Name, activity.Type, activity.Distance/1000, streams.Len())
	return replay.FromVelocityStream(streams.Offsets(), streams.Velocity(), replay.StravaAccuracy), nil
}

// connectStrava runs the OAuth flow so activity streams can be fetched
func connectStrava(ctx context.Context, db *store.DB, oauthCfg *oauth2.Config, out io.Writer) error {
	fmt.Fprintln(out, "Strava is not connected with activity access. Starting OAuth flow...")
	result, err := auth.Authenticate(ctx, oauthCfg, out)
	if err != nil {
		return err
	}
	if err := auth.Save(ctx, db, result); errors.Is(err, auth.ErrMissingScope) {
		return fmt.Errorf("allow access to your activities on the Strava consent screen: %w", err)
	} else if err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}
	fmt.Fprintf(out, "\nConnected as athlete %d\n", result.AthleteID)
	return nil
}
