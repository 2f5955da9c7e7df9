package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// WSHub broadcasts gateway events to WebSocket clients.
type WSHub struct {
	clients map[*wsClient]struct{}
	mu      sync.Mutex
	logger  *slog.Logger

	broadcast chan Event
	done      chan struct{}
	stopOnce  sync.Once
	unsub     func()
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewWSHub creates a hub subscribed to the gateway's events.
func NewWSHub(gw *Gateway, logger *slog.Logger) *WSHub {
	h := &WSHub{
		clients:   make(map[*wsClient]struct{}),
		logger:    logger.With("component", "ws"),
		broadcast: make(chan Event, 256),
		done:      make(chan struct{}),
	}
	h.unsub = gw.Events().OnAll(func(event Event) {
		select {
		case h.broadcast <- event:
		default:
			h.logger.Warn("ws broadcast channel full, dropping event")
		}
	})
	return h
}

// Run is the hub event loop. Blocks until Stop.
func (h *WSHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("ws marshal", "err", err)
				continue
			}
			h.mu.Lock()
			var slow []*wsClient
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					slow = append(slow, client)
				}
			}
			for _, client := range slow {
				delete(h.clients, client)
				close(client.send)
				h.logger.Warn("ws client evicted (too slow)")
			}
			h.mu.Unlock()
		}
	}
}

// Stop shuts the hub down. Safe to call multiple times.
func (h *WSHub) Stop() {
	h.stopOnce.Do(func() {
		if h.unsub != nil {
			h.unsub()
		}
		close(h.done)
	})
}

// ServeHTTP upgrades the request and streams gateway events until the
// client disconnects.
func (h *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		h.logger.Warn("ws accept", "err", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("ws client connected", "total", total)

	ctx := r.Context()
	go h.readLoop(ctx, client)
	h.writeLoop(ctx, client)

	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total = len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("ws client disconnected", "total", total)
	conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop drains the connection so pings are answered; client input is
// otherwise ignored.
func (h *WSHub) readLoop(ctx context.Context, client *wsClient) {
	for {
		if _, _, err := client.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (h *WSHub) writeLoop(ctx context.Context, client *wsClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-client.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := client.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
