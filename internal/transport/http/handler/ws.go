package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/schoolstream/internal/application/session"
	jwtinfra "github.com/schoolstream/internal/infrastructure/jwt"
	"github.com/schoolstream/internal/logging"
	"github.com/schoolstream/internal/realtime"
)

// WSHandler upgrades authenticated clients onto the live notification
// channel. Admission verifies the JWT and then re-verifies the session row,
// so a revoked session cannot hold a live connection with a still-valid
// token.
type WSHandler struct {
	hub      *realtime.Hub
	jwt      *jwtinfra.Provider
	sessions session.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *realtime.Hub, jwt *jwtinfra.Provider, sessions session.Service, checkOrigin func(*http.Request) bool) *WSHandler {
	return &WSHandler{
		hub:      hub,
		jwt:      jwt,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Connect handles GET /v1/ws. Browsers cannot set headers on WebSocket
// requests, so the token is accepted from either the Authorization header or
// the ?token query parameter.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	tokenStr := bearerToken(r)
	if tokenStr == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := h.jwt.Verify(tokenStr)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	sess, err := h.sessions.GetCurrent(r.Context(), claims.SessionID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "session not active")
		return
	}
	if sess.UserID != claims.UserID {
		writeError(w, http.StatusUnauthorized, "session mismatch")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// Identity comes from the session row, not from client-supplied claims.
	ident := realtime.Identity{
		UserID:    sess.UserID,
		TenantID:  sess.TenantID,
		Role:      sess.Role,
		SessionID: sess.SessionID,
	}
	s := realtime.NewSession(h.hub, conn, ident)
	h.hub.Register(s)
	s.Start()

	// The connected frame echoes the verified identity so the client filters
	// with server-verified fields.
	h.hub.Send(s, realtime.Message{Type: realtime.MessageTypeConnected, Data: ident})
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
