package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/services/connection"
	"github.com/mcoot/cardroom/internal/services/directory"
	"github.com/mcoot/cardroom/internal/services/notify"
	"github.com/mcoot/cardroom/internal/services/sessionstore"
)

// Authenticator issues and decodes anonymous session tokens
type Authenticator interface {
	LoginAnonymous(ctx context.Context) (model.Token, error)
	DecodeUserFromToken(token model.Token) (model.User, error)
}

// State is the observable session state handed to the presentation layer
type State struct {
	Token           model.Token
	User            *model.User
	RoomID          model.RoomID
	PlayerState     *model.StateSnapshot
	Connecting      bool
	LoggingIn       bool
	ConnectionError error
}

// LoggedIn reports whether the session holds a token
func (s State) LoggedIn() bool {
	return s.Token != ""
}

// Controller composes the session store, user directory, connection
// manager and notifier into one observable session.
type Controller struct {
	auth      Authenticator
	store     *sessionstore.Service
	directory *directory.Service
	manager   *connection.Manager
	notifier  *notify.Service
	logger    *slog.Logger

	loggingIn atomic.Bool

	mu           sync.Mutex
	token        model.Token
	user         *model.User
	lastSnapshot *model.StateSnapshot
	lastErrSeq   uint64
	subscribers  map[int]func(State)
	nextSubID    int
	unsubscribe  []func()
}

// NewController creates a new session controller and attaches it to the
// manager and directory.
func NewController(
	auth Authenticator,
	store *sessionstore.Service,
	dir *directory.Service,
	manager *connection.Manager,
	notifier *notify.Service,
	logger *slog.Logger,
) *Controller {
	c := &Controller{
		auth:        auth,
		store:       store,
		directory:   dir,
		manager:     manager,
		notifier:    notifier,
		logger:      logger.With(slog.String("component", "session")),
		subscribers: make(map[int]func(State)),
	}

	c.lastErrSeq = manager.Status().ErrSeq
	c.unsubscribe = []func(){
		manager.Subscribe(c.onStatus),
		dir.Subscribe(func(model.User) { c.publish() }),
	}
	return c
}

// Start restores the persisted session: the user cache and, if present,
// the token together with the identity it carries.
func (c *Controller) Start(ctx context.Context) {
	c.directory.Load(ctx)

	token, ok := c.store.Token(ctx)
	if !ok {
		return
	}

	user, err := c.auth.DecodeUserFromToken(token)
	if err != nil {
		c.logger.Warn("discarding unreadable persisted token", slog.Any("error", err))
		c.store.ClearToken(ctx)
		return
	}

	c.directory.Seed(ctx, user)

	c.mu.Lock()
	c.token = token
	c.user = &user
	c.mu.Unlock()

	c.logger.Info("session restored", slog.String("user_id", string(user.ID)))
	c.publish()
}

// Close detaches the controller and tears down any live connection
func (c *Controller) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	c.manager.Disconnect()
}

// Login obtains a new anonymous session token.
// While a login is in flight further calls return ErrLoginInProgress
// immediately without touching the network.
func (c *Controller) Login(ctx context.Context) (model.Token, error) {
	if !c.loggingIn.CompareAndSwap(false, true) {
		c.logger.Debug("login ignored, already in progress")
		return "", model.ErrLoginInProgress
	}
	c.publish()
	defer func() {
		c.loggingIn.Store(false)
		c.publish()
	}()

	token, err := c.auth.LoginAnonymous(ctx)
	if err != nil {
		c.logger.Error("login failed", slog.Any("error", err))
		return "", fmt.Errorf("login: %w", err)
	}

	user, err := c.auth.DecodeUserFromToken(token)
	if err != nil {
		c.logger.Error("login returned unreadable token", slog.Any("error", err))
		return "", fmt.Errorf("login: %w", err)
	}

	c.store.SetToken(ctx, token)
	c.directory.Seed(ctx, user)

	c.mu.Lock()
	c.token = token
	c.user = &user
	c.mu.Unlock()

	c.logger.Info("logged in",
		slog.String("user_id", string(user.ID)),
		slog.String("display_name", user.DisplayName))
	return token, nil
}

// Logout leaves any room and forgets the token
func (c *Controller) Logout(ctx context.Context) {
	c.manager.Disconnect()
	c.store.ClearToken(ctx)

	c.mu.Lock()
	c.token = ""
	c.user = nil
	c.mu.Unlock()

	c.logger.Info("logged out")
	c.publish()
}

// Connect attaches to an existing room without joining it, e.g. to watch
func (c *Controller) Connect(ctx context.Context, roomID model.RoomID) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}
	_, err = c.manager.Connect(ctx, token, roomID)
	return err
}

// Disconnect leaves the current room; a no-op when not connected
func (c *Controller) Disconnect() {
	c.manager.Disconnect()
}

// CreateGame creates a room with the default settings, logging in first if needed
func (c *Controller) CreateGame(ctx context.Context) (model.RoomID, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return "", err
	}

	roomID, err := c.manager.CreateGame(ctx, token)
	if err != nil {
		c.notifier.Error(err.Error())
		return "", err
	}
	return roomID, nil
}

// JoinGame connects to roomID and joins it.
// A rejected join is reported as a notification and leaves the connection open.
// If the connection fails during the join its error is returned; it is
// reported once, as a connection error.
func (c *Controller) JoinGame(ctx context.Context, roomID model.RoomID) (model.Result, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return model.Result{}, err
	}

	result, err := c.manager.JoinGame(ctx, token, roomID)
	if err != nil {
		return model.Result{}, err
	}
	return c.respond(result), nil
}

// StartGame asks the server to deal and begin play
func (c *Controller) StartGame(ctx context.Context) model.Result {
	return c.dispatch(ctx, model.Action{Name: model.ActionStartGame})
}

// PlayCard plays a card from the current user's hand
func (c *Controller) PlayCard(ctx context.Context, card model.Card) model.Result {
	return c.dispatch(ctx, model.Action{
		Name:    model.ActionPlayCard,
		Payload: model.PlayCardPayload{Card: card},
	})
}

// DrawCard draws from the draw pile
func (c *Controller) DrawCard(ctx context.Context) model.Result {
	return c.dispatch(ctx, model.Action{Name: model.ActionDrawCard})
}

// EndGame ends the game and leaves the room whatever the server answers
func (c *Controller) EndGame(ctx context.Context) model.Result {
	result := c.dispatch(ctx, model.Action{Name: model.ActionEndGame})
	c.manager.Disconnect()
	return result
}

// GetUserName returns the display name for id, or the id itself until it resolves
func (c *Controller) GetUserName(id model.UserID) string {
	return c.directory.Resolve(id)
}

// Notifications returns the notifications currently on screen
func (c *Controller) Notifications() []model.Notification {
	return c.notifier.Active()
}

// State returns the current session state
func (c *Controller) State() State {
	return c.stateFrom(c.manager.Status())
}

// Subscribe registers fn to be called after every state change.
// The returned function removes the subscription.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) ensureToken(ctx context.Context) (model.Token, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token != "" {
		return token, nil
	}
	return c.Login(ctx)
}

// dispatch sends an action on the current connection and reports a
// rejection. With no connection nothing is sent or reported and the
// result carries ErrNotConnected.
func (c *Controller) dispatch(ctx context.Context, action model.Action) model.Result {
	result, sent := c.manager.SendAction(ctx, action)
	if !sent {
		return model.FailureFromError(model.ErrNotConnected)
	}
	return c.respond(result)
}

// respond surfaces a failed result as an error notification; success is silent
func (c *Controller) respond(result model.Result) model.Result {
	if result.OK {
		return result
	}
	msg := result.Message
	if msg == "" {
		msg = "action failed"
	}
	c.notifier.Error(msg)
	return result
}

func (c *Controller) onStatus(st connection.Status) {
	c.mu.Lock()
	prev := c.lastSnapshot
	c.lastSnapshot = st.Snapshot
	newErr := st.Err != nil && st.ErrSeq != c.lastErrSeq
	c.lastErrSeq = st.ErrSeq
	self := c.user
	c.mu.Unlock()

	if newErr {
		c.notifier.Error(fmt.Sprintf("Connection error: %v", st.Err))
	}

	if prev != nil && st.Snapshot != nil {
		turn := st.Snapshot.CurrentTurn
		if turn != "" && turn != prev.CurrentTurn {
			c.announceTurn(turn, self)
		}
	}

	c.publishStatus(st)
}

func (c *Controller) announceTurn(turn model.UserID, self *model.User) {
	if self != nil && self.ID == turn {
		c.notifier.Info("It's your turn!")
		return
	}
	c.notifier.Info(fmt.Sprintf("It's %s's turn", c.directory.Resolve(turn)))
}

func (c *Controller) publish() {
	c.publishStatus(c.manager.Status())
}

func (c *Controller) publishStatus(st connection.Status) {
	state := c.stateFrom(st)

	c.mu.Lock()
	subs := make([]func(State), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

func (c *Controller) stateFrom(st connection.Status) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	var user *model.User
	if c.user != nil {
		u := *c.user
		user = &u
	}

	return State{
		Token:           c.token,
		User:            user,
		RoomID:          st.RoomID,
		PlayerState:     st.Snapshot,
		Connecting:      st.State == connection.StateConnecting,
		LoggingIn:       c.loggingIn.Load(),
		ConnectionError: st.Err,
	}
}
