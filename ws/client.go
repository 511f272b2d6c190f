package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cct-server/cct"
	"cct-server/session"
	"cct-server/trialerrors"
	"cct-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer when not configured.
	defaultMaxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub           *Hub
	Conn          *websocket.Conn
	Send          chan []byte
	ParticipantID string

	mu      sync.Mutex
	session *session.Session
}

func (c *Client) currentSession() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) setSession(s *session.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// ReadPump pumps messages from the websocket connection to the session.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	limit := int64(defaultMaxMessageSize)
	if c.Hub.Config != nil && c.Hub.Config.MaxMessageBytes > 0 {
		limit = int64(c.Hub.Config.MaxMessageBytes)
	}
	c.Conn.SetReadLimit(limit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "err", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	switch envelope.Type {
	case "auth":
		c.handleAuth(envelope.Raw)
	case "start_trial":
		c.handleStartTrial(envelope.Raw)
	case "reveal_card":
		c.handleRevealCard(envelope.Raw)
	case "end_round":
		c.submit(session.Action{Type: session.ActionEndRound})
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

func (c *Client) handleAuth(raw json.RawMessage) {
	if c.Hub.Verifier == nil {
		c.sendError("Authentication is not enabled on this server.")
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Token == "" {
		c.sendError("Invalid auth message.")
		return
	}
	if c.currentSession() != nil {
		c.sendError("Cannot change participant after a trial has started.")
		return
	}

	id, err := c.Hub.Verifier.ParticipantFromToken(msg.Token)
	if err != nil {
		slog.Info("token rejected", "tag", "ws", "err", err)
		c.sendError("Invalid or expired token.")
		return
	}
	c.ParticipantID = id
	wsutil.SendJSON(c.Send, AuthOKMsg{Type: "auth_ok", ParticipantID: id})
}

func (c *Client) handleStartTrial(raw json.RawMessage) {
	var msg StartTrialMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid start_trial message.")
		return
	}
	if c.Hub.Verifier != nil && c.ParticipantID == "" {
		c.sendError(capitalize(trialerrors.ErrNotAuthenticated))
		return
	}
	if s := c.currentSession(); s != nil && !s.Closed() && s.Trial.Phase() == cct.Active {
		c.sendError(capitalize(trialerrors.ErrTrialActive))
		return
	}

	cfg := cct.DefaultConfig()
	if c.Hub.Config != nil {
		cfg = c.Hub.Config.Trial
	}
	if len(msg.Config) > 0 {
		if err := json.Unmarshal(msg.Config, &cfg); err != nil {
			c.sendError("Invalid trial config.")
			return
		}
	}

	s, err := c.Hub.Sessions.Start(c.ParticipantID, cfg, c.Send)
	if err != nil {
		if !errors.Is(err, cct.ErrConfiguration) {
			slog.Warn("start trial", "tag", "ws", "participant", c.ParticipantID, "err", err)
		}
		c.sendError(capitalize(err))
		return
	}
	c.setSession(s)
}

func (c *Client) handleRevealCard(raw json.RawMessage) {
	var msg RevealCardMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Position == nil {
		c.sendError("Invalid reveal_card message.")
		return
	}
	c.submit(session.Action{Type: session.ActionReveal, Position: *msg.Position})
}

func (c *Client) submit(a session.Action) {
	s := c.currentSession()
	if s == nil {
		c.sendError(capitalize(trialerrors.ErrNoActiveTrial))
		return
	}
	if err := s.Submit(a); err != nil {
		c.sendError(capitalize(err))
	}
}

func (c *Client) sendError(message string) {
	wsutil.SendJSON(c.Send, ErrorMsg{Type: "error", Message: message})
}

// capitalize turns a sentinel error into a client-facing sentence.
func capitalize(err error) string {
	s := err.Error()
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		s = string(s[0]-'a'+'A') + s[1:]
	}
	return s + "."
}
