package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func readLines(t *testing.T, path string) []Entry {
	t.Helper()
	fh, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer fh.Close()

	var out []Entry
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decoding line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	return out
}

func TestFilesPaths(t *testing.T) {
	f := NewFiles("/logs", 2, 2)
	now := time.Date(2025, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -3*3600))

	if got, want := f.AppFile(now), filepath.Join("/logs", "app-2025-03-10.jsonl"); got != want {
		t.Errorf("AppFile() = %q, want %q", got, want)
	}
	if got, want := f.SessionFile("abc"), filepath.Join("/logs", "session-abc.jsonl"); got != want {
		t.Errorf("SessionFile() = %q, want %q", got, want)
	}
}

func TestFileAppenderRoutesBySession(t *testing.T) {
	dir := t.TempDir()
	files := NewFiles(dir, 2, 2)
	a := NewFileAppender(files)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{ID: "1", Type: TypeAppStarted, Source: SourceSystem, Time: now, App: &AppData{WorkoutState: "IDLE"}},
		{ID: "2", Type: TypeWorkoutStarted, Source: SourceService, Time: now, SessionID: "s1",
			Session: &SessionData{WorkoutState: "ACTIVE", IsTracking: true, ActivityMode: "RUNNING"}},
		{ID: "3", Type: TypeWorkoutStopped, Source: SourceService, Time: now, SessionID: "s1",
			Session: &SessionData{WorkoutState: "ACTIVE", Note: "paused"}},
	}
	for _, e := range entries {
		if err := a.Append(context.Background(), e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	app := readLines(t, files.AppFile(now))
	if len(app) != 1 || app[0].Type != TypeAppStarted {
		t.Errorf("app log = %+v, want one APP_STARTED", app)
	}

	sess := readLines(t, files.SessionFile("s1"))
	if len(sess) != 2 {
		t.Fatalf("session log has %d lines, want 2", len(sess))
	}
	if sess[1].Note() != "paused" {
		t.Errorf("Note() = %q, want paused", sess[1].Note())
	}
	if sess[0].Session == nil || !sess[0].Session.IsTracking {
		t.Errorf("session payload not round-tripped: %+v", sess[0].Session)
	}
}

func TestFilesCleanup(t *testing.T) {
	dir := t.TempDir()
	files := NewFiles(dir, 2, 2)
	now := time.Now()

	write := func(name string, age time.Duration) {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("{}\n"), 0644); err != nil {
			t.Fatal(err)
		}
		mt := now.Add(-age)
		if err := os.Chtimes(p, mt, mt); err != nil {
			t.Fatal(err)
		}
	}

	write("app-old.jsonl", 72*time.Hour)
	write("app-new.jsonl", time.Hour)
	write("session-old.jsonl", 49*time.Hour)
	write("session-new.jsonl", 47*time.Hour)
	write("other.jsonl", 100*time.Hour)
	write("app-old.txt", 100*time.Hour)

	removed, err := files.Cleanup(now)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Cleanup() removed %d, want 2", removed)
	}

	for name, wantExists := range map[string]bool{
		"app-old.jsonl":     false,
		"app-new.jsonl":     true,
		"session-old.jsonl": false,
		"session-new.jsonl": true,
		"other.jsonl":       true,
		"app-old.txt":       true,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		if exists := err == nil; exists != wantExists {
			t.Errorf("%s exists = %v, want %v", name, exists, wantExists)
		}
	}
}

func TestFilesCleanupMissingDir(t *testing.T) {
	files := NewFiles(filepath.Join(t.TempDir(), "nope"), 1, 1)
	if n, err := files.Cleanup(time.Now()); err != nil || n != 0 {
		t.Errorf("Cleanup() = (%d, %v), want (0, nil)", n, err)
	}
}

type memAppender struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (m *memAppender) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

func (m *memAppender) all() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLogStampsAndFlushes(t *testing.T) {
	mem := &memAppender{}
	failing := &memAppender{err: errors.New("disk full")}
	l := New(quietLogger(), failing, mem)

	l.Record(Entry{Type: TypeModeChanged, Source: SourceUI})
	l.Record(Entry{ID: "fixed", Type: TypeError, Source: SourceSystem})
	l.Close()
	l.Close()

	got := mem.all()
	if len(got) != 2 {
		t.Fatalf("appended %d entries, want 2", len(got))
	}
	if got[0].ID == "" || got[0].Time.IsZero() {
		t.Errorf("entry not stamped: %+v", got[0])
	}
	if got[1].ID != "fixed" {
		t.Errorf("ID = %q, want fixed", got[1].ID)
	}
	if got[1].Source != SourceSystem {
		t.Errorf("Source = %q, want %q", got[1].Source, SourceSystem)
	}
	if len(failing.all()) != 2 {
		t.Errorf("failing appender saw %d entries, want 2", len(failing.all()))
	}

	// Recording after Close is ignored
	l.Record(Entry{Type: TypeError})
	if len(mem.all()) != 2 {
		t.Error("entry recorded after Close")
	}
}

type blockingAppender struct {
	release chan struct{}
}

func (b *blockingAppender) Append(ctx context.Context, _ Entry) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func TestLogDefaultsSource(t *testing.T) {
	mem := &memAppender{}
	l := New(quietLogger(), mem)
	l.Record(Entry{Type: TypeWearConnected})
	l.Close()

	got := mem.all()
	if len(got) != 1 {
		t.Fatalf("appended %d entries, want 1", len(got))
	}
	if got[0].Source != SourceUnknown {
		t.Errorf("Source = %q, want %q", got[0].Source, SourceUnknown)
	}
}

func TestLogRecordNeverBlocks(t *testing.T) {
	b := &blockingAppender{release: make(chan struct{})}
	l := New(quietLogger(), b)

	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultQueueSize*2; i++ {
			l.Record(Entry{Type: TypeGPSSignalChanged})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a stalled appender")
	}
	if l.Dropped() == 0 {
		t.Error("expected dropped entries with a stalled appender")
	}

	close(b.release)
	l.Close()
}

func TestEntryNote(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{"session", Entry{Session: &SessionData{Note: "paused"}}, "paused"},
		{"app", Entry{App: &AppData{Note: "mode RUNNING"}}, "mode RUNNING"},
		{"app error", Entry{App: &AppData{ErrorMessage: "address in use"}}, "address in use"},
		{"empty", Entry{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Note(); got != tt.want {
				t.Errorf("Note() = %q, want %q", got, tt.want)
			}
		})
	}
}
