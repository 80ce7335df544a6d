package wear

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the redis channel pace pushes are fanned out on
const DefaultChannel = "pace:updates"

const (
	outboxSize     = 16
	clientSendSize = 8
)

// Hub relays pace pushes to connected watches. With a redis client every
// push is published to the channel and delivered from the subscription, so
// several relays share one stream. Without redis pushes go straight to the
// local clients.
type Hub struct {
	redis   *redis.Client
	channel string
	logger  *slog.Logger

	outbox  chan Message
	dropped atomic.Int64

	mu       sync.RWMutex
	clients  map[*Client]struct{}
	last     []byte
	onChange func(connected bool, clients int)
}

// Client is one connected watch
type Client struct {
	Send chan []byte
}

// NewHub creates a hub. redisClient may be nil; an empty channel uses
// DefaultChannel.
func NewHub(redisClient *redis.Client, channel string, logger *slog.Logger) *Hub {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		redis:   redisClient,
		channel: channel,
		logger:  logger,
		outbox:  make(chan Message, outboxSize),
		clients: map[*Client]struct{}{},
	}
}

// Push queues a pace update. It never blocks: when the queue is full the
// oldest pending push is dropped.
func (h *Hub) Push(pace string, at time.Time) {
	msg := NewMessage(pace, at)
	for {
		select {
		case h.outbox <- msg:
			return
		default:
		}
		select {
		case <-h.outbox:
			h.dropped.Add(1)
		default:
		}
	}
}

// Dropped returns how many pushes were discarded because the queue was full
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// OnClientChange sets fn to be called after every register and unregister
// with the new client count. fn must not block.
func (h *Hub) OnClientChange(fn func(connected bool, clients int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

// Register adds a client. It is primed with the last delivered push.
func (h *Hub) Register() *Client {
	c := &Client{Send: make(chan []byte, clientSendSize)}

	h.mu.Lock()
	if h.last != nil {
		c.Send <- h.last
	}
	h.clients[c] = struct{}{}
	n, fn := len(h.clients), h.onChange
	h.mu.Unlock()

	if fn != nil {
		fn(true, n)
	}
	return c
}

// Unregister removes a client and closes its Send channel
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.Send)
	n, fn := len(h.clients), h.onChange
	h.mu.Unlock()

	if fn != nil {
		fn(false, n)
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run drains the push queue until ctx is done. When redis cannot be
// subscribed to, pushes are delivered to local clients only.
func (h *Hub) Run(ctx context.Context) error {
	if h.redis == nil {
		return h.runLocal(ctx)
	}
	return h.runRedis(ctx)
}

func (h *Hub) runLocal(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-h.outbox:
			payload, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("encoding pace push", "err", err)
				continue
			}
			h.deliver(payload)
		}
	}
}

func (h *Hub) runRedis(ctx context.Context) error {
	pubsub := h.redis.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	// Wait for the subscription so no queued push is published before it
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		h.logger.Warn("redis unavailable, relaying locally", "channel", h.channel, "err", err)
		return h.runLocal(ctx)
	}
	h.logger.Info("relay subscribed", "channel", h.channel)

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-h.outbox:
			payload, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("encoding pace push", "err", err)
				continue
			}
			if err := h.redis.Publish(ctx, h.channel, payload).Err(); err != nil {
				h.logger.Warn("redis publish failed, delivering locally", "err", err)
				h.deliver(payload)
			}
		case m, ok := <-msgs:
			if !ok {
				h.logger.Warn("redis subscription closed, relaying locally", "channel", h.channel)
				return h.runLocal(ctx)
			}
			h.deliver([]byte(m.Payload))
		}
	}
}

// deliver hands payload to every client. Slow clients miss pushes.
func (h *Hub) deliver(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = payload
	for c := range h.clients {
		select {
		case c.Send <- payload:
		default:
		}
	}
}
