package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	appPrefix     = "app-"
	sessionPrefix = "session-"
	fileExt       = ".jsonl"
)

// Files lays out the log directory: one app-YYYY-MM-DD.jsonl per UTC day for
// events outside a session, and one session-<id>.jsonl per workout.
type Files struct {
	dir        string
	appTTL     time.Duration
	sessionTTL time.Duration
}

// NewFiles creates a layout rooted at dir. TTLs are in days.
func NewFiles(dir string, appTTLDays, sessionTTLDays int) *Files {
	return &Files{
		dir:        dir,
		appTTL:     time.Duration(appTTLDays) * 24 * time.Hour,
		sessionTTL: time.Duration(sessionTTLDays) * 24 * time.Hour,
	}
}

// EnsureDir creates the log directory if needed
func (f *Files) EnsureDir() error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	return nil
}

// AppFile returns the app log path for the UTC day containing now
func (f *Files) AppFile(now time.Time) string {
	return filepath.Join(f.dir, appPrefix+now.UTC().Format("2006-01-02")+fileExt)
}

// SessionFile returns the log path for a session
func (f *Files) SessionFile(sessionID string) string {
	return filepath.Join(f.dir, sessionPrefix+sessionID+fileExt)
}

// Cleanup removes log files whose modification time is older than their TTL.
// It returns the number of files removed.
func (f *Files) Cleanup(now time.Time) (int, error) {
	entries, err := os.ReadDir(f.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading log directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}

		var ttl time.Duration
		switch {
		case strings.HasPrefix(e.Name(), appPrefix):
			ttl = f.appTTL
		case strings.HasPrefix(e.Name(), sessionPrefix):
			ttl = f.sessionTTL
		default:
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(now.Add(-ttl)) {
			if err := os.Remove(filepath.Join(f.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// FileAppender writes entries as JSON lines into the Files layout
type FileAppender struct {
	files *Files
	mu    sync.Mutex
}

// NewFileAppender creates an appender over files
func NewFileAppender(files *Files) *FileAppender {
	return &FileAppender{files: files}
}

// Append writes e to its session file, or to the app file for its day
func (a *FileAppender) Append(_ context.Context, e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}

	path := a.files.AppFile(e.Time)
	if e.SessionID != "" {
		path = a.files.SessionFile(e.SessionID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.files.EnsureDir(); err != nil {
		return err
	}
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer fh.Close()

	if _, err := fh.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing log file: %w", err)
	}
	return nil
}
