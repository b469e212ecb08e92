// Package ws implements the WebSocket run-event feed. UI clients connect,
// optionally authenticate with a token, and receive run lifecycle events as
// JSON frames in real-time instead of polling GET /v1/runs/{id}.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/jkaninda/relay/internal/engine"
)

const writeTimeout = 5 * time.Second

// Hub broadcasts run events to all connected clients. It implements
// engine.Events.
type Hub struct {
	token  string // Optional client token. Empty = unauthenticated.
	logger *slog.Logger

	mu      sync.Mutex
	nextID  int
	clients map[int]*client
}

type client struct {
	conn *websocket.Conn
	// Buffered send queue; a slow client drops events rather than blocking
	// the run pipeline.
	send chan []byte
}

// NewHub creates an event hub with no connected clients.
func NewHub(token string, logger *slog.Logger) *Hub {
	return &Hub{
		token:   token,
		logger:  logger,
		clients: make(map[int]*client),
	}
}

// Publish broadcasts a run event to every connected client.
func (h *Hub) Publish(_ context.Context, evt engine.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("encoding run event", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			h.logger.Warn("dropping run event for slow client", slog.Int("client", id))
		}
	}
}

// Handler returns an http.Handler that upgrades connections to WebSocket.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(h.handleUpgrade)
}

func (h *Hub) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if h.token != "" {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = r.Header.Get("Authorization")
			if len(token) > 7 && token[:7] == "Bearer " {
				token = token[7:]
			}
		}
		if token != h.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{"relay-events-v1"},
	})
	if err != nil {
		h.logger.Error("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	h.handleConnection(r.Context(), conn)
}

func (h *Hub) handleConnection(ctx context.Context, conn *websocket.Conn) {
	cl := &client{conn: conn, send: make(chan []byte, 32)}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.clients[id] = cl
	h.mu.Unlock()

	h.logger.Info("event client connected", slog.Int("client", id))

	defer func() {
		h.mu.Lock()
		delete(h.clients, id)
		h.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "connection closed")
		h.logger.Info("event client disconnected", slog.Int("client", id))
	}()

	// Writer loop; reader runs in a goroutine only to detect close.
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer cancel()
		for {
			// Clients do not send application messages; Read surfaces
			// close frames and pongs.
			if _, _, err := conn.Read(readCtx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readCtx.Done():
			return
		case data := <-cl.send:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				h.logger.Warn("event write failed",
					slog.Int("client", id),
					slog.String("error", err.Error()),
				)
				return
			}
		}
	}
}
