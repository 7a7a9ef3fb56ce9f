package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/transport"
	"github.com/mcoot/cardroom/internal/transport/wire"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from the server
	maxMessageSize = 64 * 1024
)

// conn is one websocket connection to a room
type conn struct {
	id        string
	client    *Client
	url       string
	token     model.Token
	onUpdate  transport.UpdateFunc
	onFailure transport.FailureFunc
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// ready is closed once the handshake has finished, successfully or not.
	// done is closed once the connection is over. Both close only after
	// onFailure has returned, so a Send that fails because the connection
	// failed returns after the failure was reported.
	ready chan struct{}
	done  chan struct{}

	// dialErr is written before ready is closed
	dialErr error

	writeMu sync.Mutex

	mu       sync.Mutex
	ws       *websocket.Conn
	pending  map[string]chan model.Result
	closed   bool
	finished bool
}

// Ensure conn implements Handle
var _ transport.Handle = (*conn)(nil)

func newConn(c *Client, u string, t model.Token, onUpdate transport.UpdateFunc, onFailure transport.FailureFunc) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &conn{
		id:        id,
		client:    c,
		url:       u,
		token:     t,
		onUpdate:  onUpdate,
		onFailure: onFailure,
		logger:    c.logger.With(slog.String("conn", id)),
		ctx:       ctx,
		cancel:    cancel,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
		pending:   make(map[string]chan model.Result),
	}
}

func (c *conn) ID() string {
	return c.id
}

// run performs the handshake and then reads frames until the connection ends
func (c *conn) run() {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+string(c.token))

	dialCtx, cancel := context.WithTimeout(c.ctx, c.client.cfg.DialTimeout)
	ws, resp, err := c.client.dialer.DialContext(dialCtx, c.url, header)
	cancel()
	if err != nil {
		c.dialErr = handshakeError(err, resp)
		c.finish(c.dialErr)
		close(c.ready)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close()
		c.dialErr = model.ErrConnectionClosed
		c.finish(model.ErrConnectionClosed)
		close(c.ready)
		return
	}
	c.ws = ws
	c.mu.Unlock()

	close(c.ready)
	c.logger.Debug("connected", slog.String("url", c.url))

	c.readLoop(ws)
}

func (c *conn) readLoop(ws *websocket.Conn) {
	ws.SetReadLimit(maxMessageSize)

	for {
		var f wire.Frame
		if err := ws.ReadJSON(&f); err != nil {
			c.finish(c.readError(err))
			return
		}

		switch f.Type {
		case wire.FrameState:
			if f.State == nil || c.isClosed() {
				continue
			}
			c.onUpdate(f.State)

		case wire.FrameResult:
			c.deliver(f.RequestID, f.Result())

		case wire.FrameError:
			c.finish(fmt.Errorf("server error: %s", f.Message))
			return

		default:
			c.logger.Debug("ignoring unknown frame", slog.String("type", string(f.Type)))
		}
	}
}

// Send dispatches an action and waits for the server's result.
// It never returns an error: every failure is a failed Result.
func (c *conn) Send(ctx context.Context, action model.Action) model.Result {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return model.FailureFromError(ctx.Err())
	}
	if c.dialErr != nil {
		return model.FailureFromError(c.dialErr)
	}

	requestID := uuid.NewString()
	frame, err := wire.ActionFrame(requestID, action)
	if err != nil {
		return model.FailureFromError(err)
	}

	ch := make(chan model.Result, 1)
	ws, err := c.register(requestID, ch)
	if err != nil {
		return model.FailureFromError(err)
	}

	c.writeMu.Lock()
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	err = ws.WriteJSON(frame)
	c.writeMu.Unlock()
	if err != nil {
		c.unregister(requestID)
		return model.FailureFromError(fmt.Errorf("send %s: %w", action.Name, err))
	}

	timer := time.NewTimer(c.client.cfg.ActionTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r
	case <-c.done:
		return model.FailureFromError(model.ErrConnectionClosed)
	case <-ctx.Done():
		c.unregister(requestID)
		return model.FailureFromError(ctx.Err())
	case <-timer.C:
		c.unregister(requestID)
		return model.Failure("timed out waiting for the server")
	}
}

// Close tears the connection down. No callbacks fire after Close returns,
// except an update already being delivered.
func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws := c.ws
	c.mu.Unlock()

	c.cancel()
	if ws == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	return ws.Close()
}

// finish ends the connection once and reports err unless the caller closed it
func (c *conn) finish(err error) {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return
	}
	c.finished = true
	closed := c.closed
	ws := c.ws
	c.pending = nil
	c.mu.Unlock()

	defer close(c.done)
	c.cancel()
	if ws != nil {
		_ = ws.Close()
	}

	if closed {
		c.logger.Debug("connection closed")
		return
	}

	c.logger.Warn("connection lost", slog.Any("error", err))
	c.onFailure(err)
}

func (c *conn) register(requestID string, ch chan model.Result) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.finished || c.ws == nil {
		return nil, model.ErrConnectionClosed
	}
	c.pending[requestID] = ch
	return c.ws, nil
}

func (c *conn) unregister(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, requestID)
}

func (c *conn) deliver(requestID string, r model.Result) {
	c.mu.Lock()
	ch, ok := c.pending[requestID]
	delete(c.pending, requestID)
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("result for unknown request", slog.String("request_id", requestID))
		return
	}
	ch <- r
}

func (c *conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *conn) readError(err error) error {
	if c.isClosed() {
		return model.ErrConnectionClosed
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return fmt.Errorf("%w by server", model.ErrConnectionClosed)
	}
	return err
}

// handshakeError prefers the server's JSON error body when the upgrade was refused
func handshakeError(err error, resp *http.Response) error {
	if resp == nil || !errors.Is(err, websocket.ErrBadHandshake) {
		return err
	}
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil || len(body) == 0 {
		return fmt.Errorf("%w: HTTP %d", err, resp.StatusCode)
	}
	return parseAPIError(resp.StatusCode, body)
}
