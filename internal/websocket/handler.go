package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tutorboard/internal/logger"
	"tutorboard/pkg/types"
)

// Tutoring clients connect from browser origins unknown at deploy time.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// MessageHandler consumes one inbound message for a user. The session
// state machine implements it.
type MessageHandler interface {
	Handle(ctx context.Context, userID string, msg *types.ClientMessage)
}

// Handler owns the tutoring WebSocket endpoint: it validates the user,
// upgrades the request, registers the connection and runs its read loop.
type Handler struct {
	registry     *Registry
	machine      MessageHandler
	log          *logger.Logger
	pingInterval time.Duration
	readTimeout  time.Duration
}

// NewHandler wires the WebSocket endpoint to the registry and the session
// state machine.
func NewHandler(registry *Registry, machine MessageHandler, log *logger.Logger, pingInterval, readTimeout time.Duration) *Handler {
	return &Handler{
		registry:     registry,
		machine:      machine,
		log:          log,
		pingInterval: pingInterval,
		readTimeout:  readTimeout,
	}
}

// HandleTutorSocket serves GET /ws/tutor/:user_id. Validation happens
// before the upgrade so invalid requests get proper HTTP status codes.
func (h *Handler) HandleTutorSocket(c *gin.Context) {
	userID := c.Param("user_id")
	if !types.IsValidUserID(userID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": types.ErrInvalidUserID.Error()})
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	conn := NewConnection(wsConn, userID)
	if err := h.registry.Register(conn); err != nil {
		h.log.Error("connection registration failed", "user_id", userID, "error", err)
		_ = conn.Close()
		return
	}

	h.log.Info("websocket connected", "user_id", userID)
	h.serve(conn)
}

// serve runs the sequential message loop for one connection: each inbound
// frame is fully handled, completions and store round trips included,
// before the next frame is read. Only a transport error ends the loop.
func (h *Handler) serve(conn *Connection) {
	defer func() {
		h.registry.Unregister(conn)
		_ = conn.Close()
		h.log.Info("websocket disconnected", "user_id", conn.UserID())
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	// Heartbeat runs independently of message processing so a long
	// completion call does not look like a dead peer.
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read error", "user_id", conn.UserID(), "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg types.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.registry.Send(conn.UserID(), &types.Event{
				Type:    types.EventTypeError,
				Content: "Unsupported message type or missing data.",
			})
			continue
		}

		h.machine.Handle(context.Background(), conn.UserID(), &msg)
	}
}
