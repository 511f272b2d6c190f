package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"cct-server/cct"
	"cct-server/config"
	"cct-server/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Experiment pages are hosted on arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SessionManager defines what the Hub needs from the session manager.
type SessionManager interface {
	Start(participantID string, cfg cct.Config, send chan []byte) (*session.Session, error)
	Abandon(id string) error
}

// TokenVerifier turns a participant token into a participant id.
type TokenVerifier interface {
	ParticipantFromToken(token string) (string, error)
}

// Hub maintains the set of active clients.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Sessions   SessionManager
	Config     *config.Config

	// Verifier is nil when participant auth is disabled.
	Verifier TokenVerifier

	done chan struct{}
}

// NewHub creates a new Hub. verifier may be nil.
func NewHub(cfg *config.Config, sessions SessionManager, verifier TokenVerifier) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Sessions:   sessions,
		Config:     cfg,
		Verifier:   verifier,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled, Run returns and no longer accepts new registrations.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "ws")
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Info("client connected", "tag", "ws", "clients", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				// A trial left running by a vanished participant is abandoned, not archived.
				if s := client.currentSession(); s != nil && !s.Closed() {
					if err := h.Sessions.Abandon(s.ID); err != nil {
						slog.Debug("abandon on disconnect", "tag", "ws", "trial", s.ID, "err", err)
					}
				}
				close(client.Send)
				slog.Info("client disconnected", "tag", "ws", "clients", len(h.Clients))
			}
		}
	}
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	select {
	case h.Register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
