package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = gorilla.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialTestSocket returns the server side of a live WebSocket pair plus the
// client side for asserting on delivered frames.
func dialTestSocket(t *testing.T) (*gorilla.Conn, *gorilla.Conn) {
	t.Helper()

	serverSide := make(chan *gorilla.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverSide <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case conn := <-serverSide:
		return conn, client
	case <-time.After(2 * time.Second):
		t.Fatal("server side of test socket never arrived")
		return nil, nil
	}
}

func TestConnection_WriteJSONDelivers(t *testing.T) {
	server, client := dialTestSocket(t)
	conn := NewConnection(server, "alice")
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "typing", "content": "Thinking..."}))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got map[string]string
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "typing", got["type"])
	assert.Equal(t, "Thinking...", got["content"])
}

func TestConnection_WriteAfterClose(t *testing.T) {
	server, _ := dialTestSocket(t)
	conn := NewConnection(server, "alice")

	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.WriteJSON(map[string]string{"a": "b"}), ErrConnectionClosed)
}

func TestConnection_WriterFailureStopsWrites(t *testing.T) {
	server, _ := dialTestSocket(t)
	conn := NewConnection(server, "alice")
	defer conn.Close()

	// Kill the socket under the writer. The next queued frame fails, the
	// writer shuts the connection down, and later writes fail fast instead
	// of panicking on a closed channel.
	require.NoError(t, server.Close())

	require.Eventually(t, func() bool {
		err := conn.WriteJSON(map[string]string{"type": "typing"})
		return errors.Is(err, ErrConnectionClosed)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnection_CloseIdempotent(t *testing.T) {
	server, _ := dialTestSocket(t)
	conn := NewConnection(server, "alice")

	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
}

func TestConnection_UserID(t *testing.T) {
	server, _ := dialTestSocket(t)
	conn := NewConnection(server, "alice")
	defer conn.Close()

	assert.Equal(t, "alice", conn.UserID())
}
