package websocket

import (
	"sync"

	"tutorboard/internal/logger"
	"tutorboard/pkg/types"
)

// Registry maps each user ID to at most one live connection. It implements
// interfaces.EventSink: outbound events are delivered if a channel is
// registered and silently dropped otherwise. Pure connection tracking, no
// business logic.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	log         *logger.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
		log:         log,
	}
}

// Register tracks a connection as the user's live channel. Any previous
// channel for the same user is simply no longer reachable through the
// registry; its read loop ends on its own transport error.
func (r *Registry) Register(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	if conn.UserID() == "" {
		return ErrMissingUserID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[conn.UserID()]; exists {
		r.log.Debug("replacing live connection", "user_id", conn.UserID())
	}
	r.connections[conn.UserID()] = conn
	return nil
}

// Unregister removes the mapping for this connection. Idempotent, and only
// removes the entry when it still points at the same connection instance,
// so a stale connection's cleanup never evicts its replacement.
func (r *Registry) Unregister(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if registered, exists := r.connections[conn.UserID()]; exists && registered == conn {
		delete(r.connections, conn.UserID())
	}
}

// Connection returns the live channel for a user.
func (r *Registry) Connection(userID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.connections[userID]
	return conn, exists
}

// Send delivers an event to the user's live channel, if any. Best-effort:
// no channel means the event is dropped, and a write failure is logged but
// not retried.
func (r *Registry) Send(userID string, event *types.Event) {
	conn, exists := r.Connection(userID)
	if !exists {
		return
	}
	if err := conn.WriteJSON(event); err != nil {
		r.log.Warn("event delivery failed", "user_id", userID, "event_type", event.Type, "error", err)
	}
}

// Count returns the number of live connections, for the health endpoint.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
