package eventlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultQueueSize bounds how many entries may wait for the writer
const DefaultQueueSize = 256

// Appender persists entries. Append may block; Log calls it off the caller's goroutine.
type Appender interface {
	Append(ctx context.Context, e Entry) error
}

// Log records entries asynchronously. Record never blocks: when the queue is
// full the entry is dropped and counted. Appender failures are logged and
// otherwise ignored.
type Log struct {
	appenders []Appender
	logger    *slog.Logger
	now       func() time.Time

	queue chan Entry
	done  chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

// New starts a Log writing to the given appenders
func New(logger *slog.Logger, appenders ...Appender) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Log{
		appenders: appenders,
		logger:    logger,
		now:       time.Now,
		queue:     make(chan Entry, DefaultQueueSize),
		done:      make(chan struct{}),
	}
	go l.run()
	return l
}

// Record stamps e with an id, time and source (when missing) and queues it
func (l *Log) Record(e Entry) {
	if e.Source == "" {
		e.Source = SourceUnknown
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = l.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	select {
	case l.queue <- e:
	default:
		l.dropped++
		l.logger.Warn("event log queue full, dropping entry", "type", e.Type, "dropped", l.dropped)
	}
}

// Dropped returns how many entries were lost to a full queue
func (l *Log) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close flushes queued entries and stops the writer
func (l *Log) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
}

func (l *Log) run() {
	defer close(l.done)

	for e := range l.queue {
		for _, a := range l.appenders {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.Append(ctx, e); err != nil {
				l.logger.Warn("appending event", "type", e.Type, "session", e.SessionID, "err", err)
			}
			cancel()
		}
	}
}
