package wear

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = (readDeadline * 9) / 10
	readLimit     = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler serves the watch websocket. Each connection receives every pace
// push as a JSON Message; anything the watch sends is ignored.
func Handler(h *Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", "err", err)
			return
		}

		c := h.Register()
		h.logger.Info("watch connected", "remote", r.RemoteAddr, "clients", h.Clients())

		go writePump(h, conn, c)
		readPump(h, conn, c)
	})
}

// readPump keeps the read deadline alive via pongs and unregisters on error
func readPump(h *Hub, conn *websocket.Conn, c *Client) {
	defer func() {
		h.Unregister(c)
		_ = conn.Close()
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("watch read error", "err", err)
			}
			return
		}
	}
}

func writePump(h *Hub, conn *websocket.Conn, c *Client) {
	t := time.NewTicker(pingInterval)
	defer func() {
		t.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("watch write error", "err", err)
				return
			}
		case <-t.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

