package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/cardroom/internal/api/apierr"
	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/transport/wire"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8 * 1024

	// Buffer size for outgoing messages
	sendBufferSize = 64

	// Time allowed for one action to be applied
	actionTimeout = 10 * time.Second
)

// Upgrader accepts websocket connections from any origin; clients
// authenticate with a bearer token rather than cookies.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one websocket connection to a room hub
type Client struct {
	hub         *Hub
	userID      model.UserID
	conn        *websocket.Conn
	send        chan []byte
	quit        chan struct{}
	connectedAt time.Time
	logger      *slog.Logger
}

// NewClient creates a new client for an upgraded connection
func NewClient(hub *Hub, userID model.UserID, conn *websocket.Conn) *Client {
	return &Client{
		hub:         hub,
		userID:      userID,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		quit:        make(chan struct{}),
		connectedAt: time.Now(),
		logger:      hub.logger.With(slog.String("user_id", string(userID))),
	}
}

// enqueue queues msg without blocking and reports whether it fit
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ServeWS upgrades the request and serves the connection until either side closes it
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, user model.User) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		hub.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := NewClient(hub, user.ID, conn)
	hub.Register(client)

	go client.writePump()
	client.readPump()
	hub.Unregister(client)
}

// readPump applies action frames from the peer and answers each with a result
func (c *Client) readPump() {
	defer func() { _ = c.conn.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f wire.Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", slog.Any("error", err))
			}
			return
		}

		result := c.handle(f)
		msg, err := json.Marshal(wire.ResultFrame(f.RequestID, result))
		if err != nil {
			c.logger.Error("failed to encode result", slog.Any("error", err))
			continue
		}
		if !c.enqueue(msg) {
			c.logger.Warn("result dropped - client buffer full",
				slog.String("request_id", f.RequestID))
		}
	}
}

func (c *Client) handle(f wire.Frame) model.Result {
	if f.Type != wire.FrameAction {
		return model.Failure("expected an action frame")
	}

	action, err := wire.DecodeAction(f)
	if err != nil {
		return model.FailureFromError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	if err := c.hub.Apply(ctx, c.userID, action); err != nil {
		c.logger.Debug("action rejected",
			slog.String("action", string(action.Name)),
			slog.Any("error", err))
		return model.Failure(apierr.Message(err))
	}
	return model.Success()
}

// writePump writes queued frames and keepalive pings until the hub lets go of the client
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-c.quit:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
