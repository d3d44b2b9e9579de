package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/phyten/funclen/internal/diagstore"
	"github.com/phyten/funclen/internal/logging"
	"github.com/phyten/funclen/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is one frame of the diagnostics stream. The first frame a client
// receives is a snapshot; later frames mirror store changes.
type Message struct {
	Type     string            `json:"type"`
	ClientID string            `json:"client_id,omitempty"`
	File     string            `json:"file,omitempty"`
	Findings []model.Finding   `json:"findings,omitempty"`
	Entries  []diagstore.Entry `json:"entries,omitempty"`
}

// Hub streams diagnostic store changes to WebSocket clients.
type Hub struct {
	store    *diagstore.Store
	logger   *slog.Logger
	upgrader websocket.Upgrader
	clients  atomic.Int64
}

func NewHub(store *diagstore.Store, logger *slog.Logger) *Hub {
	return &Hub{
		store:  store,
		logger: logging.Component(logger, "ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: sameOrigin,
		},
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.clients.Load())
}

// sameOrigin accepts requests without an Origin header and those whose
// Origin host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	h.clients.Add(1)
	defer h.clients.Add(-1)
	ctx := r.Context()
	logging.Info(ctx, h.logger, "client connected", logging.Fields{"client_id": id, "remote": r.RemoteAddr})
	defer logging.Info(context.WithoutCancel(ctx), h.logger, "client disconnected", logging.Fields{"client_id": id})

	changes, cancel := h.store.Subscribe()
	defer cancel()

	snapshot := Message{Type: "snapshot", ClientID: id, Entries: h.store.Snapshot()}
	if err := h.write(conn, snapshot); err != nil {
		return
	}

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if err := h.write(conn, Message{Type: string(c.Kind), File: c.File, Findings: c.Findings}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		logging.Debug(context.Background(), h.logger, "write failed", logging.Fields{"type": msg.Type, "error": err.Error()})
		return err
	}
	return nil
}

// readPump drains client frames so control frames are processed, and closes
// done when the connection goes away.
func (h *Hub) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
