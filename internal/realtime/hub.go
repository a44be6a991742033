// Package realtime implements the live notification channel: a process-local
// registry of authenticated WebSocket sessions grouped into tenant, user and
// role rooms, and the fan-out of domain events to those rooms.
//
// The registry is in-memory and single-instance; a multi-instance deployment
// would need an external pub/sub layer in front of it.
package realtime

import (
	"sort"
	"sync"

	"github.com/schoolstream/internal/domain"
	"github.com/schoolstream/internal/logging"
	"github.com/schoolstream/internal/metrics"
)

// Message types for WebSocket communication.
const (
	MessageTypeConnected    = "connected"
	MessageTypeNotification = "notification"
	MessageTypeRead         = "notification_read"
	MessageTypeReadAll      = "notification_read_all"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

// Message is one WebSocket frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Identity is the server-verified identity of a live session. It is derived
// from the session row at admission time, never from client-supplied fields.
type Identity struct {
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}

// Hub is the broadcast router: it owns the live session registry and routes
// each event to the sessions in the matching tenant/role room, excluding the
// acting user's own sessions. Delivery is at-most-once per session with no
// retry; a session whose send buffer is full is evicted as dead.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	tenants  map[string]map[*Session]struct{}
	users    map[string]map[*Session]struct{}
	roles    map[string]map[*Session]struct{} // keyed tenantID:role
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		tenants:  make(map[string]map[*Session]struct{}),
		users:    make(map[string]map[*Session]struct{}),
		roles:    make(map[string]map[*Session]struct{}),
	}
}

func roleKey(tenantID, role string) string { return tenantID + ":" + role }

// Register adds a verified session to its tenant, user and role rooms.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s] = struct{}{}
	addToRoom(h.tenants, s.ident.TenantID, s)
	addToRoom(h.users, s.ident.UserID, s)
	if s.ident.Role != "" {
		addToRoom(h.roles, roleKey(s.ident.TenantID, s.ident.Role), s)
	}
	metrics.ConnectedSessions.WithLabelValues(s.ident.TenantID).Inc()
	logging.Info().
		Str("tenant", s.ident.TenantID).
		Str("user", s.ident.UserID).
		Int("total_sessions", len(h.sessions)).
		Msg("live session connected")
}

// Unregister removes a session from all rooms and closes its send channel.
// Safe to call more than once.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

// Broadcast routes an event per the routing rules:
//  1. candidates are the tenant room, or the tenant's role room when the
//     event names a specific target role;
//  2. the actor's own sessions are excluded (self-echo suppression);
//  3. each remaining session is delivered to exactly once, best-effort.
func (h *Hub) Broadcast(ev *domain.Event) {
	msg := Message{Type: MessageTypeNotification, Data: ev}

	h.mu.Lock()
	defer h.mu.Unlock()

	var room map[*Session]struct{}
	if ev.TargetRole == "" || ev.TargetRole == domain.TargetRoleAll {
		room = h.tenants[ev.TenantID]
	} else {
		room = h.roles[roleKey(ev.TenantID, ev.TargetRole)]
	}

	for _, s := range sortedSessions(room) {
		if s.ident.UserID == ev.Actor.ID {
			continue
		}
		h.deliverLocked(s, msg)
	}
}

// SendToUser delivers a message to every session of one user, skipping
// exclude. Used for read-state sync between a user's own tabs; other users
// never receive these signals.
func (h *Hub) SendToUser(userID string, msg Message, exclude *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range sortedSessions(h.users[userID]) {
		if s == exclude {
			continue
		}
		h.deliverLocked(s, msg)
	}
}

// Send delivers a message to one session, best-effort.
func (h *Hub) Send(s *Session, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(s, msg)
}

// SessionCount returns the number of registered sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll evicts every session. Called on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range sortedSessions(h.sessions) {
		h.removeLocked(s)
	}
	logging.Info().Msg("closed all live sessions")
}

// deliverLocked pushes msg onto the session's send buffer. A full buffer
// means the client stopped draining; the session is evicted rather than
// retried, and the client is expected to reconnect and backfill.
func (h *Hub) deliverLocked(s *Session, msg Message) {
	select {
	case s.send <- msg:
		metrics.Deliveries.Inc()
	default:
		metrics.DroppedDeliveries.Inc()
		logging.Warn().
			Str("user", s.ident.UserID).
			Str("tenant", s.ident.TenantID).
			Msg("session send buffer full, evicting")
		h.removeLocked(s)
	}
}

func (h *Hub) removeLocked(s *Session) {
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	removeFromRoom(h.tenants, s.ident.TenantID, s)
	removeFromRoom(h.users, s.ident.UserID, s)
	if s.ident.Role != "" {
		removeFromRoom(h.roles, roleKey(s.ident.TenantID, s.ident.Role), s)
	}
	close(s.send)
	metrics.ConnectedSessions.WithLabelValues(s.ident.TenantID).Dec()
	logging.Info().
		Str("tenant", s.ident.TenantID).
		Str("user", s.ident.UserID).
		Int("total_sessions", len(h.sessions)).
		Msg("live session disconnected")
}

func addToRoom(rooms map[string]map[*Session]struct{}, key string, s *Session) {
	room, ok := rooms[key]
	if !ok {
		room = make(map[*Session]struct{})
		rooms[key] = room
	}
	room[s] = struct{}{}
}

func removeFromRoom(rooms map[string]map[*Session]struct{}, key string, s *Session) {
	if room, ok := rooms[key]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(rooms, key)
		}
	}
}

// sortedSessions snapshots a room in session-id order so fan-out order is
// stable across runs.
func sortedSessions(room map[*Session]struct{}) []*Session {
	out := make([]*Session, 0, len(room))
	for s := range room {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
