package wear

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"pacetracker/internal/observable"
)

// Receiver is the watch side of the relay. It keeps the latest pace string
// for a face or complication to render.
type Receiver struct {
	url     string
	dialer  *websocket.Dialer
	backoff time.Duration
	logger  *slog.Logger

	pace    *observable.Value[string]
	updated *observable.Value[time.Time]
}

// NewReceiver creates a receiver for the relay at url (ws://host/pace)
func NewReceiver(url string, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Receiver{
		url:     url,
		dialer:  websocket.DefaultDialer,
		backoff: time.Second,
		logger:  logger,
		pace:    observable.NewValue(DefaultPace),
		updated: observable.NewValue(time.Time{}),
	}
}

// Pace is the latest received pace, DefaultPace until the first push
func (r *Receiver) Pace() observable.Reader[string] {
	return r.pace
}

// Updated is the timestamp of the last applied push, zero before the first
func (r *Receiver) Updated() observable.Reader[time.Time] {
	return r.updated
}

// Apply updates the pace from one message. Messages for other paths are
// ignored and an empty pace falls back to DefaultPace.
func (r *Receiver) Apply(m Message) {
	if m.Path != Path {
		return
	}
	r.updated.Set(m.Time())
	if m.Pace == "" {
		r.pace.Set(DefaultPace)
		return
	}
	r.pace.Set(m.Pace)
}

// Run connects and applies pushes until ctx is done, reconnecting after
// errors.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		err := r.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		r.logger.Warn("relay connection lost", "url", r.url, "err", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.backoff):
		}
	}
}

func (r *Receiver) session(ctx context.Context) error {
	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		m, err := DecodeMessage(data)
		if err != nil {
			r.logger.Debug("ignoring relay payload", "err", err)
			continue
		}
		r.Apply(m)
	}
}
