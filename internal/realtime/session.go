package realtime

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/schoolstream/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024

	sendBufferSize = 64
)

// sessionIDCounter generates unique, monotonically increasing ids so
// sessions can be ordered deterministically during fan-out.
var sessionIDCounter atomic.Uint64

// Session is the server side of one live client connection. It pumps
// messages between the WebSocket and the hub and relays the client's
// read-sync signals to the same user's sibling sessions.
type Session struct {
	id    uint64
	ident Identity
	hub   *Hub
	conn  *websocket.Conn
	send  chan Message
}

// NewSession wraps an upgraded connection with its verified identity.
func NewSession(hub *Hub, conn *websocket.Conn, ident Identity) *Session {
	return &Session{
		id:    sessionIDCounter.Add(1),
		ident: ident,
		hub:   hub,
		conn:  conn,
		send:  make(chan Message, sendBufferSize),
	}
}

// Identity returns the session's verified identity.
func (s *Session) Identity() Identity { return s.ident }

// Start begins the read and write pumps. The session must already be
// registered with the hub.
func (s *Session) Start() {
	go s.writePump()
	go s.readPump()
}

// readPump consumes client frames until the connection dies, enforcing the
// heartbeat deadline so dead connections are evicted from the registry.
func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("user", s.ident.UserID).Msg("unexpected websocket close")
			}
			return
		}
		s.handleInbound(msg)
	}
}

// handleInbound processes one client frame. Read and read-all signals are
// rebroadcast to the same user's other sessions only; durable read-state
// changes go through the REST endpoints, not this channel.
func (s *Session) handleInbound(msg Message) {
	switch msg.Type {
	case MessageTypeRead, MessageTypeReadAll:
		s.hub.SendToUser(s.ident.UserID, msg, s)
	case MessageTypePing:
		select {
		case s.send <- Message{Type: MessageTypePong}:
		default:
		}
	}
}

// writePump writes hub messages and heartbeat pings to the connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub evicted this session.
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				logging.Warn().Err(err).Str("user", s.ident.UserID).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
