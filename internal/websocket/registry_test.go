package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorboard/internal/logger"
	"tutorboard/pkg/types"
)

func newTestRegistry() *Registry {
	return NewRegistry(logger.NewNop())
}

func TestRegistry_RegisterValidation(t *testing.T) {
	registry := newTestRegistry()

	assert.ErrorIs(t, registry.Register(nil), ErrNilConnection)

	server, _ := dialTestSocket(t)
	conn := NewConnection(server, "")
	defer conn.Close()
	assert.ErrorIs(t, registry.Register(conn), ErrMissingUserID)
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	registry := newTestRegistry()

	server, _ := dialTestSocket(t)
	conn := NewConnection(server, "alice")
	defer conn.Close()

	require.NoError(t, registry.Register(conn))

	got, exists := registry.Connection("alice")
	require.True(t, exists)
	assert.Same(t, conn, got)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_ReplacementWins(t *testing.T) {
	registry := newTestRegistry()

	serverA, _ := dialTestSocket(t)
	first := NewConnection(serverA, "alice")
	defer first.Close()
	require.NoError(t, registry.Register(first))

	serverB, _ := dialTestSocket(t)
	second := NewConnection(serverB, "alice")
	defer second.Close()
	require.NoError(t, registry.Register(second))

	got, exists := registry.Connection("alice")
	require.True(t, exists)
	assert.Same(t, second, got)
	assert.Equal(t, 1, registry.Count())

	// The stale connection's cleanup must not evict its replacement.
	registry.Unregister(first)
	got, exists = registry.Connection("alice")
	require.True(t, exists)
	assert.Same(t, second, got)
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	registry := newTestRegistry()

	server, _ := dialTestSocket(t)
	conn := NewConnection(server, "alice")
	defer conn.Close()

	require.NoError(t, registry.Register(conn))
	registry.Unregister(conn)
	registry.Unregister(conn)
	registry.Unregister(nil)

	_, exists := registry.Connection("alice")
	assert.False(t, exists)
	assert.Equal(t, 0, registry.Count())
}

func TestRegistry_SendDelivers(t *testing.T) {
	registry := newTestRegistry()

	server, client := dialTestSocket(t)
	conn := NewConnection(server, "alice")
	defer conn.Close()
	require.NoError(t, registry.Register(conn))

	registry.Send("alice", &types.Event{Type: types.EventTypeMessage, Content: "hello"})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got types.Event
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, types.EventTypeMessage, got.Type)
	assert.Equal(t, "hello", got.Content)
}

func TestRegistry_SendToUnknownUserDrops(t *testing.T) {
	registry := newTestRegistry()

	// No channel registered: the event is silently dropped.
	registry.Send("ghost", &types.Event{Type: types.EventTypeMessage, Content: "hello"})
}
