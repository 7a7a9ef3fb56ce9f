package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/transport"
)

// MockTransport is an in-process fake of the game server client.
// Tests drive inbound traffic through the handles it hands out.
type MockTransport struct {
	mu sync.Mutex

	// Tokens maps issued tokens to the identity they decode to
	Tokens map[model.Token]model.User

	// LoginQueue is a queue of tokens returned by LoginAnonymous
	LoginQueue []model.Token
	// LoginErr, when set, fails LoginAnonymous
	LoginErr error
	// LoginGate, when set, blocks LoginAnonymous until closed
	LoginGate chan struct{}
	loginCalls int

	// RoomID is returned by CreateRoom
	RoomID        model.RoomID
	CreateRoomErr error
	createCalls   []model.RoomInit

	// ConnectErr, when set, fails Connect
	ConnectErr error
	// HandshakeErr, when set, makes new handles fail on their first Send the
	// way an asynchronous dial does: onFailure first, then a failed Result
	HandshakeErr error
	// DefaultResults are the results new handles return per action
	DefaultResults map[model.ActionName]model.Result
	handles        []*MockHandle

	// Users answers LookupUser; ids not present fail with model.ErrUserNotFound
	Users map[model.UserID]model.User
	// LookupGate, when set, blocks LookupUser until closed
	LookupGate  chan struct{}
	lookupCalls map[model.UserID]int
}

// Ensure MockTransport implements Client
var _ transport.Client = (*MockTransport)(nil)

// NewMockTransport creates an empty MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Tokens:         make(map[model.Token]model.User),
		RoomID:         "ROOM01",
		DefaultResults: make(map[model.ActionName]model.Result),
		Users:          make(map[model.UserID]model.User),
		lookupCalls:    make(map[model.UserID]int),
	}
}

// IssueToken queues a login that returns a token for user
func (t *MockTransport) IssueToken(token model.Token, user model.User) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Tokens[token] = user
	t.LoginQueue = append(t.LoginQueue, token)
}

func (t *MockTransport) LoginAnonymous(ctx context.Context) (model.Token, error) {
	t.mu.Lock()
	t.loginCalls++
	gate := t.LoginGate
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.LoginErr != nil {
		return "", t.LoginErr
	}
	if len(t.LoginQueue) == 0 {
		return "", errors.New("no login queued")
	}
	token := t.LoginQueue[0]
	t.LoginQueue = t.LoginQueue[1:]
	return token, nil
}

func (t *MockTransport) DecodeUserFromToken(token model.Token) (model.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.Tokens[token]
	if !ok {
		return model.User{}, model.ErrInvalidToken
	}
	return u, nil
}

func (t *MockTransport) CreateRoom(ctx context.Context, token model.Token, init model.RoomInit) (model.RoomID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.createCalls = append(t.createCalls, init)
	if t.CreateRoomErr != nil {
		return "", t.CreateRoomErr
	}
	return t.RoomID, nil
}

func (t *MockTransport) Connect(ctx context.Context, token model.Token, roomID model.RoomID, onUpdate transport.UpdateFunc, onFailure transport.FailureFunc) (transport.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ConnectErr != nil {
		return nil, t.ConnectErr
	}

	results := make(map[model.ActionName]model.Result, len(t.DefaultResults))
	for k, v := range t.DefaultResults {
		results[k] = v
	}

	h := &MockHandle{
		id:        fmt.Sprintf("handle-%d", len(t.handles)+1),
		Token:     token,
		RoomID:    roomID,
		onUpdate:  onUpdate,
		onFailure: onFailure,
		results:   results,
		handshake: t.HandshakeErr,
	}
	t.handles = append(t.handles, h)
	return h, nil
}

func (t *MockTransport) LookupUser(ctx context.Context, id model.UserID) (model.User, error) {
	t.mu.Lock()
	t.lookupCalls[id]++
	gate := t.LookupGate
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return model.User{}, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.Users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

// LoginCalls returns how many times LoginAnonymous was called
func (t *MockTransport) LoginCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loginCalls
}

// CreateRoomCalls returns the payloads CreateRoom was called with
func (t *MockTransport) CreateRoomCalls() []model.RoomInit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.RoomInit(nil), t.createCalls...)
}

// LookupCalls returns how many times LookupUser was called for id
func (t *MockTransport) LookupCalls(id model.UserID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookupCalls[id]
}

// Handles returns every handle handed out so far, oldest first
func (t *MockTransport) Handles() []*MockHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*MockHandle(nil), t.handles...)
}

// LastHandle returns the most recent handle, or nil
func (t *MockTransport) LastHandle() *MockHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.handles) == 0 {
		return nil
	}
	return t.handles[len(t.handles)-1]
}

// MockHandle is a connection handed out by MockTransport
type MockHandle struct {
	id        string
	Token     model.Token
	RoomID    model.RoomID
	onUpdate  transport.UpdateFunc
	onFailure transport.FailureFunc

	mu        sync.Mutex
	results   map[model.ActionName]model.Result
	sent      []model.Action
	closed    bool
	handshake error
}

// Ensure MockHandle implements Handle
var _ transport.Handle = (*MockHandle)(nil)

func (h *MockHandle) ID() string {
	return h.id
}

// Send records the action and returns the configured result (success by default)
func (h *MockHandle) Send(ctx context.Context, action model.Action) model.Result {
	h.mu.Lock()
	h.sent = append(h.sent, action)
	if err := h.handshake; err != nil {
		h.handshake = nil
		h.mu.Unlock()
		h.onFailure(err)
		return model.FailureFromError(err)
	}
	defer h.mu.Unlock()
	if h.closed {
		return model.FailureFromError(model.ErrConnectionClosed)
	}
	if r, ok := h.results[action.Name]; ok {
		return r
	}
	return model.Success()
}

func (h *MockHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// SetResult configures the result returned for an action
func (h *MockHandle) SetResult(name model.ActionName, result model.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results[name] = result
}

// Push delivers a snapshot as if the server sent it.
// Unlike a real transport it still delivers after Close, to exercise stale-handle guards.
func (h *MockHandle) Push(snapshot *model.StateSnapshot) {
	h.onUpdate(snapshot)
}

// Fail reports a terminal error as if the transport failed
func (h *MockHandle) Fail(err error) {
	h.onFailure(err)
}

// Sent returns the actions sent on this handle
func (h *MockHandle) Sent() []model.Action {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.Action(nil), h.sent...)
}

// Closed reports whether Close was called
func (h *MockHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
