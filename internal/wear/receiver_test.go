package wear

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestReceiverApply(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"pace push", Message{Path: Path, Pace: "5:30"}, "5:30"},
		{"other path", Message{Path: "/other", Pace: "9:99"}, DefaultPace},
		{"empty pace", Message{Path: Path}, DefaultPace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReceiver("ws://unused", nil)
			r.Apply(tt.msg)
			if got := r.Pace().Get(); got != tt.want {
				t.Errorf("Pace() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReceiverDefault(t *testing.T) {
	r := NewReceiver("ws://unused", nil)
	if got := r.Pace().Get(); got != DefaultPace {
		t.Errorf("Pace() = %q, want %q", got, DefaultPace)
	}
}

func TestReceiverUpdated(t *testing.T) {
	r := NewReceiver("ws://unused", nil)
	if got := r.Updated().Get(); !got.IsZero() {
		t.Errorf("Updated() = %v before any push, want zero", got)
	}

	at := time.UnixMilli(1700000000123)
	r.Apply(NewMessage("4:50", at))
	if got := r.Updated().Get(); !got.Equal(at) {
		t.Errorf("Updated() = %v, want %v", got, at)
	}

	r.Apply(Message{Path: "/other", Timestamp: at.Add(time.Minute).UnixMilli()})
	if got := r.Updated().Get(); !got.Equal(at) {
		t.Errorf("Updated() = %v after foreign push, want %v", got, at)
	}
}

func TestRelayEndToEnd(t *testing.T) {
	hub := NewHub(nil, "", nil)
	srv := httptest.NewServer(Handler(hub))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	r := NewReceiver("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	r.backoff = 10 * time.Millisecond
	updates, stop := r.Pace().Subscribe()
	defer stop()
	go r.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("receiver never connected")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Push("5:19", time.Now())

	timeout := time.After(2 * time.Second)
	for {
		select {
		case p := <-updates:
			if p == "5:19" {
				if r.Updated().Get().IsZero() {
					t.Errorf("Updated() is zero after a push")
				}
				return
			}
		case <-timeout:
			t.Fatalf("receiver pace = %q, want %q", r.Pace().Get(), "5:19")
		}
	}
}
