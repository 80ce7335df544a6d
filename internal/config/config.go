package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"pacetracker/internal/modes"
	"pacetracker/internal/pace"
	"pacetracker/internal/wear"
)

// Config represents the application configuration
type Config struct {
	Filter  FilterConfig  `json:"filter"`
	Session SessionConfig `json:"session"`
	Wear    WearConfig    `json:"wear"`
	Log     LogConfig     `json:"log"`
	Strava  StravaConfig  `json:"strava"`
}

// FilterConfig holds the pace filter thresholds
type FilterConfig struct {
	StopThreshold   float64 `json:"stop_threshold"`    // m/s
	AccBadThreshold float64 `json:"acc_bad_threshold"` // meters
}

// SessionConfig holds workout defaults
type SessionConfig struct {
	DefaultMode string `json:"default_mode"`
}

// WearConfig holds the watch relay settings
type WearConfig struct {
	ListenAddr   string `json:"listen_addr"`
	RedisAddr    string `json:"redis_addr"` // empty disables redis fan-out
	RedisChannel string `json:"redis_channel"`
}

// LogConfig holds event log and process log settings
type LogConfig struct {
	Dir            string `json:"dir"`
	AppTTLDays     int    `json:"app_ttl_days"`
	SessionTTLDays int    `json:"session_ttl_days"`
	Level          string `json:"level"`
}

// StravaConfig holds Strava API credentials, needed only for replays
type StravaConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	logDir := "logs"
	if dir, err := GetConfigDir(); err == nil {
		logDir = filepath.Join(dir, "logs")
	}
	return Config{
		Filter: FilterConfig{
			StopThreshold:   pace.DefaultStopThreshold,
			AccBadThreshold: pace.DefaultAccBadThreshold,
		},
		Session: SessionConfig{
			DefaultMode: modes.Running.String(),
		},
		Wear: WearConfig{
			ListenAddr:   ":8787",
			RedisChannel: wear.DefaultChannel,
		},
		Log: LogConfig{
			Dir:            logDir,
			AppTTLDays:     2,
			SessionTTLDays: 2,
			Level:          "info",
		},
	}
}

// Load reads the configuration from ~/.pacetracker/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the configuration from path and fills in defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Filter.StopThreshold == 0 {
		c.Filter.StopThreshold = defaults.Filter.StopThreshold
	}
	if c.Filter.AccBadThreshold == 0 {
		c.Filter.AccBadThreshold = defaults.Filter.AccBadThreshold
	}
	if c.Session.DefaultMode == "" {
		c.Session.DefaultMode = defaults.Session.DefaultMode
	}
	if c.Wear.ListenAddr == "" {
		c.Wear.ListenAddr = defaults.Wear.ListenAddr
	}
	if c.Wear.RedisChannel == "" {
		c.Wear.RedisChannel = defaults.Wear.RedisChannel
	}
	if c.Log.Dir == "" {
		c.Log.Dir = defaults.Log.Dir
	}
	if c.Log.AppTTLDays == 0 {
		c.Log.AppTTLDays = defaults.Log.AppTTLDays
	}
	if c.Log.SessionTTLDays == 0 {
		c.Log.SessionTTLDays = defaults.Log.SessionTTLDays
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// LoadEnv loads a .env file from the working directory if present and
// applies PACETRACKER_* overrides from the environment.
func (c *Config) LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return c.ApplyEnv(os.Getenv)
}

// ApplyEnv overrides fields from the PACETRACKER_* variables returned by getenv
func (c *Config) ApplyEnv(getenv func(string) string) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"PACETRACKER_STOP_THRESHOLD", &c.Filter.StopThreshold},
		{"PACETRACKER_ACC_BAD_THRESHOLD", &c.Filter.AccBadThreshold},
	}
	for _, f := range floats {
		if v := getenv(f.key); v != "" {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = x
		}
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"PACETRACKER_MODE", &c.Session.DefaultMode},
		{"PACETRACKER_WEAR_ADDR", &c.Wear.ListenAddr},
		{"PACETRACKER_REDIS_ADDR", &c.Wear.RedisAddr},
		{"PACETRACKER_REDIS_CHANNEL", &c.Wear.RedisChannel},
		{"PACETRACKER_LOG_DIR", &c.Log.Dir},
		{"PACETRACKER_LOG_LEVEL", &c.Log.Level},
		{"PACETRACKER_STRAVA_CLIENT_ID", &c.Strava.ClientID},
		{"PACETRACKER_STRAVA_CLIENT_SECRET", &c.Strava.ClientSecret},
	}
	for _, s := range strs {
		if v := getenv(s.key); v != "" {
			*s.dst = v
		}
	}
	return nil
}

// SaveFile writes the configuration to path
func SaveFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}
	return SaveFile(path, &example)
}

// Validate checks thresholds, mode and log level
func (c *Config) Validate() error {
	if c.Filter.StopThreshold <= 0 {
		return fmt.Errorf("filter.stop_threshold must be positive, got %v", c.Filter.StopThreshold)
	}
	if c.Filter.AccBadThreshold <= 0 {
		return fmt.Errorf("filter.acc_bad_threshold must be positive, got %v", c.Filter.AccBadThreshold)
	}
	if _, err := modes.Parse(c.Session.DefaultMode); err != nil {
		return fmt.Errorf("session.default_mode: %w", err)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Log.AppTTLDays < 0 || c.Log.SessionTTLDays < 0 {
		return errors.New("log ttl days must not be negative")
	}
	return nil
}

// ValidateStrava checks the credentials needed for Strava replays
func (c *Config) ValidateStrava() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return nil
}

// Mode returns the configured starting mode
func (c *Config) Mode() modes.Mode {
	m, err := modes.Parse(c.Session.DefaultMode)
	if err != nil {
		return modes.Running
	}
	return m
}

// SlogLevel maps log.level to a slog level
func (c *Config) SlogLevel() (slog.Level, error) {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".pacetracker"), nil
}
