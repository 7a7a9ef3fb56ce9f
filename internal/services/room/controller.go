package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mcoot/cardroom/internal/dependencies/clock"
	"github.com/mcoot/cardroom/internal/dependencies/random"
	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/storage"
)

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 6
	// RoomCodeAlphabet is the characters used in room codes (avoid confusing chars)
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Controller runs the room state machine: lobby, playing, ended.
// Rooms are persisted as JSON in the key-value store; mu serializes
// every read-modify-write.
type Controller struct {
	storage storage.Store
	clock   clock.Clock
	random  random.Random

	mu sync.Mutex
}

// NewController creates a new room controller
func NewController(store storage.Store, clk clock.Clock, rnd random.Random) *Controller {
	return &Controller{
		storage: store,
		clock:   clk,
		random:  rnd,
	}
}

// Create creates an empty room owned by host. The host still joins like everyone else.
func (c *Controller) Create(ctx context.Context, host model.UserID, init model.RoomInit) (*model.Room, error) {
	if init == (model.RoomInit{}) {
		init = model.DefaultRoomInit()
	}
	if err := init.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Generate unique room code
	var id model.RoomID
	for {
		id = model.RoomID(c.random.String(RoomCodeLength, RoomCodeAlphabet))
		_, err := c.load(ctx, id)
		if errors.Is(err, model.ErrRoomNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	now := c.clock.Now()
	room := &model.Room{
		ID:        id,
		Host:      host,
		Init:      init,
		Phase:     model.PhaseLobby,
		Seq:       1,
		Players:   []model.UserID{},
		Hands:     map[model.UserID][]model.Card{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.save(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Get retrieves a room by id
func (c *Controller) Get(ctx context.Context, id model.RoomID) (*model.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx, id)
}

// Snapshot returns the room as seen by viewer
func (c *Controller) Snapshot(ctx context.Context, id model.RoomID, viewer model.UserID) (*model.StateSnapshot, error) {
	room, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return room.Snapshot(viewer), nil
}

// Apply performs action on behalf of user
func (c *Controller) Apply(ctx context.Context, id model.RoomID, user model.UserID, action model.Action) error {
	switch action.Name {
	case model.ActionJoin:
		return c.Join(ctx, id, user)
	case model.ActionStartGame:
		return c.Start(ctx, id, user)
	case model.ActionPlayCard:
		p, ok := action.Payload.(model.PlayCardPayload)
		if !ok {
			return fmt.Errorf("%w: play_card needs a card", model.ErrUnknownAction)
		}
		return c.Play(ctx, id, user, p.Card)
	case model.ActionDrawCard:
		return c.Draw(ctx, id, user)
	case model.ActionEndGame:
		return c.End(ctx, id, user)
	default:
		return fmt.Errorf("%w: %q", model.ErrUnknownAction, action.Name)
	}
}

// Join seats user in the room. Joining a room you're already in is a no-op.
func (c *Controller) Join(ctx context.Context, id model.RoomID, user model.UserID) error {
	return c.update(ctx, id, func(room *model.Room) error {
		if room.HasPlayer(user) {
			return errNoChange
		}
		if room.Phase != model.PhaseLobby {
			return model.ErrGameInProgress
		}
		if len(room.Players) >= room.Init.MaxPlayers {
			return model.ErrRoomFull
		}
		room.Players = append(room.Players, user)
		room.Hands[user] = []model.Card{}
		return nil
	})
}

// Start shuffles, deals a hand to every player and turns up one card
func (c *Controller) Start(ctx context.Context, id model.RoomID, user model.UserID) error {
	return c.update(ctx, id, func(room *model.Room) error {
		if !room.HasPlayer(user) {
			return model.ErrNotInRoom
		}
		if room.Phase != model.PhaseLobby {
			return model.ErrGameInProgress
		}
		if len(room.Players) < model.MinPlayers {
			return model.ErrInsufficientPlayers
		}

		deck := model.NewDeck()
		c.random.Shuffle(len(deck), func(i, j int) {
			deck[i], deck[j] = deck[j], deck[i]
		})

		for _, p := range room.Players {
			hand := make([]model.Card, room.Init.HandSize)
			copy(hand, deck[:room.Init.HandSize])
			deck = deck[room.Init.HandSize:]
			room.Hands[p] = hand
		}

		room.Discard = []model.Card{deck[len(deck)-1]}
		room.DrawPile = deck[:len(deck)-1]
		room.Turn = 0
		room.Phase = model.PhasePlaying
		return nil
	})
}

// Play moves card from user's hand to the discard pile.
// Emptying your hand wins the game.
func (c *Controller) Play(ctx context.Context, id model.RoomID, user model.UserID, card model.Card) error {
	return c.update(ctx, id, func(room *model.Room) error {
		if err := checkTurn(room, user); err != nil {
			return err
		}

		hand := room.Hands[user]
		idx := slices.Index(hand, card)
		if idx < 0 {
			return model.ErrCardNotInHand
		}
		room.Hands[user] = slices.Delete(hand, idx, idx+1)
		room.Discard = append(room.Discard, card)

		if len(room.Hands[user]) == 0 {
			room.Phase = model.PhaseEnded
			room.Winner = user
			return nil
		}
		room.Turn = (room.Turn + 1) % len(room.Players)
		return nil
	})
}

// Draw takes the top card of the draw pile into user's hand and ends their turn
func (c *Controller) Draw(ctx context.Context, id model.RoomID, user model.UserID) error {
	return c.update(ctx, id, func(room *model.Room) error {
		if err := checkTurn(room, user); err != nil {
			return err
		}
		n := len(room.DrawPile)
		if n == 0 {
			return model.ErrDrawPileEmpty
		}

		room.Hands[user] = append(room.Hands[user], room.DrawPile[n-1])
		room.DrawPile = room.DrawPile[:n-1]
		room.Turn = (room.Turn + 1) % len(room.Players)
		return nil
	})
}

// End finishes the game without a winner
func (c *Controller) End(ctx context.Context, id model.RoomID, user model.UserID) error {
	return c.update(ctx, id, func(room *model.Room) error {
		if !room.HasPlayer(user) && room.Host != user {
			return model.ErrNotInRoom
		}
		if room.Phase == model.PhaseEnded {
			return errNoChange
		}
		room.Phase = model.PhaseEnded
		return nil
	})
}

// errNoChange lets an update succeed without saving
var errNoChange = errors.New("no change")

// update loads a room, applies fn and saves it with a bumped sequence number
func (c *Controller) update(ctx context.Context, id model.RoomID, fn func(*model.Room) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.load(ctx, id)
	if err != nil {
		return err
	}

	if err := fn(room); err != nil {
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}

	room.Seq++
	room.UpdatedAt = c.clock.Now()
	return c.save(ctx, room)
}

func checkTurn(room *model.Room, user model.UserID) error {
	if !room.HasPlayer(user) {
		return model.ErrNotInRoom
	}
	if room.Phase != model.PhasePlaying {
		return model.ErrGameNotStarted
	}
	if room.CurrentPlayer() != user {
		return model.ErrNotYourTurn
	}
	return nil
}

func (c *Controller) load(ctx context.Context, id model.RoomID) (*model.Room, error) {
	data, err := c.storage.Get(ctx, roomKey(id))
	if err != nil {
		if errors.Is(err, model.ErrKeyNotFound) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", id, err)
	}
	if room.Hands == nil {
		room.Hands = map[model.UserID][]model.Card{}
	}
	return &room, nil
}

func (c *Controller) save(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	if err := c.storage.Set(ctx, roomKey(room.ID), string(data)); err != nil {
		return fmt.Errorf("save room %s: %w", room.ID, err)
	}
	return nil
}

func roomKey(id model.RoomID) string {
	return "room:" + string(id)
}
