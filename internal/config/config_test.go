package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pacetracker/internal/modes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Filter.StopThreshold != 0.5 {
		t.Errorf("Filter.StopThreshold = %v, want 0.5", cfg.Filter.StopThreshold)
	}
	if cfg.Filter.AccBadThreshold != 35 {
		t.Errorf("Filter.AccBadThreshold = %v, want 35", cfg.Filter.AccBadThreshold)
	}
	if cfg.Session.DefaultMode != "running" {
		t.Errorf("Session.DefaultMode = %q, want %q", cfg.Session.DefaultMode, "running")
	}
	if cfg.Wear.ListenAddr != ":8787" {
		t.Errorf("Wear.ListenAddr = %q, want %q", cfg.Wear.ListenAddr, ":8787")
	}
	if cfg.Wear.RedisAddr != "" {
		t.Errorf("Wear.RedisAddr should be empty, got %q", cfg.Wear.RedisAddr)
	}
	if cfg.Log.AppTTLDays != 2 || cfg.Log.SessionTTLDays != 2 {
		t.Errorf("Log TTL days = %d/%d, want 2/2", cfg.Log.AppTTLDays, cfg.Log.SessionTTLDays)
	}

	// Strava config should be empty by default
	if cfg.Strava.ClientID != "" {
		t.Errorf("Strava.ClientID should be empty, got %q", cfg.Strava.ClientID)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{"valid config", func(*Config) {}, ""},
		{"zero stop threshold", func(c *Config) { c.Filter.StopThreshold = 0 }, "stop_threshold"},
		{"negative accuracy threshold", func(c *Config) { c.Filter.AccBadThreshold = -1 }, "acc_bad_threshold"},
		{"unknown mode", func(c *Config) { c.Session.DefaultMode = "cycling" }, "default_mode"},
		{"walk alias", func(c *Config) { c.Session.DefaultMode = "walk" }, ""},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"negative ttl", func(c *Config) { c.Log.AppTTLDays = -1 }, "ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Error("expected error, got nil")
			} else if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestValidateStrava(t *testing.T) {
	tests := []struct {
		name        string
		strava      StravaConfig
		errContains string
	}{
		{"valid", StravaConfig{ClientID: "12345", ClientSecret: "abc123secret"}, ""},
		{"empty client ID", StravaConfig{ClientSecret: "abc123secret"}, "client_id"},
		{"placeholder client ID", StravaConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "abc123secret"}, "client_id"},
		{"empty client secret", StravaConfig{ClientID: "12345"}, "client_secret"},
		{"both placeholders", StravaConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "YOUR_CLIENT_SECRET"}, "client_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Strava: tt.strava}
			err := cfg.ValidateStrava()
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want it to contain %q", err, tt.errContains)
			}
		})
	}
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"filter": {"acc_bad_threshold": 20}, "session": {"default_mode": "walking"}, "wear": {"redis_addr": "localhost:6379"}}`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Filter.AccBadThreshold != 20 {
		t.Errorf("Filter.AccBadThreshold = %v, want 20", cfg.Filter.AccBadThreshold)
	}
	if cfg.Filter.StopThreshold != 0.5 {
		t.Errorf("Filter.StopThreshold = %v, want default 0.5", cfg.Filter.StopThreshold)
	}
	if cfg.Mode() != modes.Walking {
		t.Errorf("Mode() = %v, want walking", cfg.Mode())
	}
	if cfg.Wear.RedisAddr != "localhost:6379" {
		t.Errorf("Wear.RedisAddr = %q, want localhost:6379", cfg.Wear.RedisAddr)
	}
	if cfg.Wear.ListenAddr != ":8787" {
		t.Errorf("Wear.ListenAddr = %q, want default :8787", cfg.Wear.ListenAddr)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrNoConfig) {
		t.Errorf("err = %v, want ErrNoConfig", err)
	}
}

func TestLoadFileInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("err = %v, want parse error", err)
	}
}

func TestSaveFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Strava.ClientID = "12345"

	if err := SaveFile(path, &cfg); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if got.Strava.ClientID != "12345" {
		t.Errorf("Strava.ClientID = %q, want 12345", got.Strava.ClientID)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PACETRACKER_STOP_THRESHOLD":   "0.8",
		"PACETRACKER_MODE":             "walk",
		"PACETRACKER_REDIS_ADDR":       "redis:6379",
		"PACETRACKER_LOG_LEVEL":        "debug",
		"PACETRACKER_STRAVA_CLIENT_ID": "999",
	}
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Filter.StopThreshold != 0.8 {
		t.Errorf("Filter.StopThreshold = %v, want 0.8", cfg.Filter.StopThreshold)
	}
	if cfg.Filter.AccBadThreshold != 35 {
		t.Errorf("Filter.AccBadThreshold = %v, want unchanged 35", cfg.Filter.AccBadThreshold)
	}
	if cfg.Mode() != modes.Walking {
		t.Errorf("Mode() = %v, want walking", cfg.Mode())
	}
	if cfg.Wear.RedisAddr != "redis:6379" {
		t.Errorf("Wear.RedisAddr = %q, want redis:6379", cfg.Wear.RedisAddr)
	}
	if lvl, _ := cfg.SlogLevel(); lvl != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", lvl)
	}
	if cfg.Strava.ClientID != "999" {
		t.Errorf("Strava.ClientID = %q, want 999", cfg.Strava.ClientID)
	}
}

func TestApplyEnvBadFloat(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(func(k string) string {
		if k == "PACETRACKER_ACC_BAD_THRESHOLD" {
			return "far"
		}
		return ""
	})
	if err == nil || !strings.Contains(err.Error(), "PACETRACKER_ACC_BAD_THRESHOLD") {
		t.Errorf("err = %v, want error naming the variable", err)
	}
}

func TestLoadEnvReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PACETRACKER_WEAR_ADDR=:9999\n"), 0600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("PACETRACKER_WEAR_ADDR", "")
	os.Unsetenv("PACETRACKER_WEAR_ADDR")

	cfg := DefaultConfig()
	if err := cfg.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if cfg.Wear.ListenAddr != ":9999" {
		t.Errorf("Wear.ListenAddr = %q, want :9999", cfg.Wear.ListenAddr)
	}
}
