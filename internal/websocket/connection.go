package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeBuffer bounds queued outbound frames per connection. A lesson
	// turn produces at most a handful of events, so a slow client never
	// blocks the session loop.
	writeBuffer = 100

	writeTimeout = 5 * time.Second
)

// Connection wraps one live tutoring socket. All writes go through a single
// writer goroutine; the wrapper carries no business logic.
type Connection struct {
	conn      *websocket.Conn
	writeCh   chan []byte
	userID    string
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded WebSocket for the given user and starts
// its writer goroutine.
func NewConnection(conn *websocket.Conn, userID string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:    conn,
		writeCh: make(chan []byte, writeBuffer),
		userID:  userID,
		ctx:     ctx,
		cancel:  cancel,
	}

	go c.writeLoop()

	return c
}

// writeLoop is the single writer for the underlying socket, serializing
// frames from any number of callers. The channel is never closed: on exit
// the context is cancelled instead, so a concurrent WriteJSON fails with
// ErrConnectionClosed rather than sending on a closed channel.
func (c *Connection) writeLoop() {
	defer c.cancel()

	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON queues a JSON frame for delivery, failing after the write
// timeout rather than blocking the caller indefinitely.
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close shuts the connection down exactly once, stopping the writer
// goroutine and closing the underlying socket.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// UserID returns the user this connection belongs to. Immutable after
// construction.
func (c *Connection) UserID() string {
	return c.userID
}
