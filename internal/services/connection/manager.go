package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/transport"
)

// Transport is the part of the game server client the manager needs
type Transport interface {
	CreateRoom(ctx context.Context, token model.Token, init model.RoomInit) (model.RoomID, error)
	Connect(ctx context.Context, token model.Token, roomID model.RoomID, onUpdate transport.UpdateFunc, onFailure transport.FailureFunc) (transport.Handle, error)
}

// State is the lifecycle state of the managed connection
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Status is a point-in-time view of the manager
type Status struct {
	State    State
	RoomID   model.RoomID
	Snapshot *model.StateSnapshot
	// Err is the last connection error. ErrSeq increases every time a new
	// one is recorded so observers can show each error exactly once.
	Err    error
	ErrSeq uint64
}

// Manager owns at most one live connection.
//
// Every connect bumps a generation counter and the transport callbacks
// registered for that connect carry the generation they were created with.
// A callback whose generation no longer matches belongs to a replaced or
// disconnected handle and is dropped without touching state.
type Manager struct {
	transport Transport
	logger    *slog.Logger

	mu          sync.Mutex
	gen         uint64
	handle      transport.Handle
	state       State
	roomID      model.RoomID
	snapshot    *model.StateSnapshot
	err         error
	errSeq      uint64
	subscribers map[int]func(Status)
	nextSubID   int

	// outbox holds statuses not yet delivered, in the order they were applied.
	// Exactly one goroutine drains it at a time.
	outbox   []Status
	draining bool
}

// NewManager creates a new connection manager
func NewManager(t Transport, logger *slog.Logger) *Manager {
	return &Manager{
		transport:   t,
		logger:      logger.With(slog.String("component", "connection")),
		state:       StateDisconnected,
		subscribers: make(map[int]func(Status)),
	}
}

// Connect opens a connection to roomID, replacing any existing one.
// It returns once the transport has accepted the attempt; the manager is
// Connecting until the first snapshot arrives.
func (m *Manager) Connect(ctx context.Context, token model.Token, roomID model.RoomID) (transport.Handle, error) {
	h, _, err := m.connect(ctx, token, roomID)
	return h, err
}

// connect is Connect, also returning the generation of the new attempt
func (m *Manager) connect(ctx context.Context, token model.Token, roomID model.RoomID) (transport.Handle, uint64, error) {
	if token == "" {
		return nil, 0, model.ErrNotLoggedIn
	}

	var prev transport.Handle
	var gen uint64
	m.apply(func() bool {
		prev = m.handle
		m.gen++
		gen = m.gen
		m.handle = nil
		m.state = StateConnecting
		m.roomID = roomID
		m.snapshot = nil
		m.err = nil
		return true
	})

	if prev != nil {
		m.closeHandle(prev, "replaced")
	}

	m.logger.Info("connecting", slog.String("room", string(roomID)))

	h, err := m.transport.Connect(ctx, token, roomID, m.onUpdate(gen), m.onFailure(gen))
	if err != nil {
		m.apply(func() bool {
			if m.gen != gen {
				return false
			}
			m.state = StateDisconnected
			m.roomID = ""
			m.recordErrorLocked(err)
			return true
		})
		m.logger.Warn("connect failed",
			slog.String("room", string(roomID)),
			slog.Any("error", err))
		return nil, gen, fmt.Errorf("connect to room %s: %w", roomID, err)
	}

	var superseded bool
	var failure error
	m.mu.Lock()
	switch {
	case m.gen != gen:
		superseded = true
	case m.state == StateDisconnected:
		// The transport already reported a failure for this attempt
		superseded = true
		failure = m.err
	default:
		m.handle = h
	}
	m.mu.Unlock()

	if superseded {
		m.closeHandle(h, "superseded")
		if failure == nil {
			failure = model.ErrConnectionClosed
		}
		return nil, gen, fmt.Errorf("connect to room %s: %w", roomID, failure)
	}

	return h, gen, nil
}

// Disconnect tears down the current connection and clears all connection state.
// It is a no-op when nothing is connected.
func (m *Manager) Disconnect() {
	var h transport.Handle
	var changed bool
	m.apply(func() bool {
		changed = m.handle != nil || m.state != StateDisconnected || m.snapshot != nil || m.err != nil
		if !changed {
			return false
		}
		h = m.handle
		m.gen++
		m.handle = nil
		m.state = StateDisconnected
		m.roomID = ""
		m.snapshot = nil
		m.err = nil
		return true
	})

	if h != nil {
		m.closeHandle(h, "disconnect")
		m.logger.Info("disconnected")
	}
}

// CreateGame asks the server for a new room using the default room settings
func (m *Manager) CreateGame(ctx context.Context, token model.Token) (model.RoomID, error) {
	if token == "" {
		return "", model.ErrNotLoggedIn
	}

	roomID, err := m.transport.CreateRoom(ctx, token, model.DefaultRoomInit())
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}

	m.logger.Info("room created", slog.String("room", string(roomID)))
	return roomID, nil
}

// JoinGame connects to roomID and then sends a join on the new handle.
// A rejected join leaves the connection in place; the caller reports the
// returned result. If the connection itself failed, the join was never
// processed and the recorded connection error is returned instead.
func (m *Manager) JoinGame(ctx context.Context, token model.Token, roomID model.RoomID) (model.Result, error) {
	h, gen, err := m.connect(ctx, token, roomID)
	if err != nil {
		return model.Result{}, err
	}

	result := h.Send(ctx, model.Action{Name: model.ActionJoin})
	if !result.OK {
		if connErr := m.failedAt(gen); connErr != nil {
			return model.Result{}, fmt.Errorf("join room %s: %w", roomID, connErr)
		}
		m.logger.Warn("join rejected",
			slog.String("room", string(roomID)),
			slog.String("message", result.Message))
	}
	return result, nil
}

// failedAt returns the connection error if the attempt gen ended in a failure
func (m *Manager) failedAt(gen uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || m.state != StateDisconnected {
		return nil
	}
	return m.err
}

// SendAction forwards action on the current handle.
// With no live handle the action is dropped and sent is false.
func (m *Manager) SendAction(ctx context.Context, action model.Action) (result model.Result, sent bool) {
	m.mu.Lock()
	h := m.handle
	m.mu.Unlock()

	if h == nil {
		m.logger.Debug("action dropped, not connected", slog.String("action", string(action.Name)))
		return model.Result{}, false
	}

	return h.Send(ctx, action), true
}

// Status returns the current connection status
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// Subscribe registers fn to be called after every status change.
// fn may call back into the manager; the changes it makes are delivered
// after fn returns.
func (m *Manager) Subscribe(fn func(Status)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) onUpdate(gen uint64) transport.UpdateFunc {
	return func(snapshot *model.StateSnapshot) {
		m.apply(func() bool {
			if m.gen != gen {
				m.logger.Debug("stale snapshot ignored", slog.Uint64("generation", gen))
				return false
			}
			m.snapshot = snapshot
			m.state = StateConnected
			return true
		})
	}
}

func (m *Manager) onFailure(gen uint64) transport.FailureFunc {
	return func(err error) {
		var h transport.Handle
		var current bool
		m.apply(func() bool {
			if m.gen != gen {
				return false
			}
			current = true
			h = m.handle
			m.handle = nil
			m.state = StateDisconnected
			m.snapshot = nil
			m.recordErrorLocked(err)
			return true
		})

		if !current {
			m.logger.Debug("stale failure ignored",
				slog.Uint64("generation", gen),
				slog.Any("error", err))
			return
		}

		m.logger.Warn("connection failed", slog.Any("error", err))
		if h != nil {
			m.closeHandle(h, "failure")
		}
	}
}

// apply runs mutate under the state lock and, if it reports a change,
// queues the resulting status for subscribers.
func (m *Manager) apply(mutate func() bool) {
	m.mu.Lock()
	if !mutate() {
		m.mu.Unlock()
		return
	}
	m.outbox = append(m.outbox, m.statusLocked())
	m.mu.Unlock()

	m.drain()
}

// drain delivers queued statuses in order without holding any lock.
// If another call is already draining, that call delivers ours too.
func (m *Manager) drain() {
	m.mu.Lock()
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true

	for len(m.outbox) > 0 {
		status := m.outbox[0]
		m.outbox = m.outbox[1:]
		subs := make([]func(Status), 0, len(m.subscribers))
		for _, fn := range m.subscribers {
			subs = append(subs, fn)
		}
		m.mu.Unlock()

		for _, fn := range subs {
			fn(status)
		}

		m.mu.Lock()
	}

	m.draining = false
	m.mu.Unlock()
}

func (m *Manager) recordErrorLocked(err error) {
	if err == nil {
		err = errors.New("connection failed")
	}
	m.err = err
	m.errSeq++
}

func (m *Manager) statusLocked() Status {
	return Status{
		State:    m.state,
		RoomID:   m.roomID,
		Snapshot: m.snapshot,
		Err:      m.err,
		ErrSeq:   m.errSeq,
	}
}

func (m *Manager) closeHandle(h transport.Handle, reason string) {
	if err := h.Close(); err != nil {
		m.logger.Debug("error closing connection",
			slog.String("handle", h.ID()),
			slog.String("reason", reason),
			slog.Any("error", err))
	}
}
