package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pacetracker/internal/config"
)

const usage = `Usage:
  pacetracker [--replay file.csv]          live training screen
  pacetracker replay [flags] <file.csv>    run recorded samples and print the pace
  pacetracker replay --strava <activityID> replay a Strava activity's speed stream
  pacetracker relay [--addr :8787]         run only the watch relay
  pacetracker watch [--url ws://host/pace] show the pace a watch would display
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := "track"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	switch cmd {
	case "track":
		return runTrack(ctx, cfg, args)
	case "replay":
		return runReplay(ctx, cfg, args)
	case "relay":
		return runRelay(ctx, cfg, args)
	case "watch":
		return runWatch(ctx, cfg, args)
	case "help":
		fmt.Print(usage)
		return nil
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

// loadConfig reads the config file, falling back to defaults when there is
// none, then applies .env and PACETRACKER_* overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		if err := config.CreateExample(); err != nil {
			return nil, fmt.Errorf("creating example config: %w", err)
		}
		defaults := config.DefaultConfig()
		cfg = &defaults
	} else if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		return nil, fmt.Errorf("config validation failed: %w (edit %s/config.json)", err, configDir)
	}
	return cfg, nil
}

// newFlagSet returns a flag set that reports errors instead of exiting
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	return fs
}
