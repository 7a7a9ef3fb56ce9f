package model

import (
	"fmt"
	"slices"
	"time"
)

// RoomID identifies a game room
type RoomID string

const (
	// MinPlayers is the fewest players a game can start with
	MinPlayers = 2
	// MaxRoomPlayers caps RoomInit.MaxPlayers
	MaxRoomPlayers = 8
	// MaxHandSize caps RoomInit.HandSize
	MaxHandSize = 10
)

// RoomInit is the payload sent when creating a room
type RoomInit struct {
	MaxPlayers int `json:"max_players"`
	HandSize   int `json:"hand_size"`
}

// DefaultRoomInit returns the payload used when the caller doesn't customise the room
func DefaultRoomInit() RoomInit {
	return RoomInit{
		MaxPlayers: 4,
		HandSize:   7,
	}
}

// Validate checks the settings can be dealt from one deck with a card left to turn up
func (i RoomInit) Validate() error {
	if i.MaxPlayers < MinPlayers || i.MaxPlayers > MaxRoomPlayers {
		return fmt.Errorf("%w: max_players must be between %d and %d", ErrInvalidRoomInit, MinPlayers, MaxRoomPlayers)
	}
	if i.HandSize < 1 || i.HandSize > MaxHandSize {
		return fmt.Errorf("%w: hand_size must be between 1 and %d", ErrInvalidRoomInit, MaxHandSize)
	}
	if i.MaxPlayers*i.HandSize >= DeckSize {
		return fmt.Errorf("%w: not enough cards to deal %d hands of %d", ErrInvalidRoomInit, i.MaxPlayers, i.HandSize)
	}
	return nil
}

// Room is the server-side state of one game room
type Room struct {
	ID        RoomID            `json:"id"`
	Host      UserID            `json:"host"`
	Init      RoomInit          `json:"init"`
	Phase     Phase             `json:"phase"`
	Seq       int64             `json:"seq"`
	Players   []UserID          `json:"players"`
	Hands     map[UserID][]Card `json:"hands"`
	DrawPile  []Card            `json:"draw_pile"` // top is last
	Discard   []Card            `json:"discard"`   // top is last
	Turn      int               `json:"turn"`
	Winner    UserID            `json:"winner,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// HasPlayer reports whether the user is seated in the room
func (r *Room) HasPlayer(id UserID) bool {
	return slices.Contains(r.Players, id)
}

// CurrentPlayer returns whose turn it is, or "" outside play
func (r *Room) CurrentPlayer() UserID {
	if r.Phase != PhasePlaying || len(r.Players) == 0 {
		return ""
	}
	return r.Players[r.Turn%len(r.Players)]
}

// Snapshot renders the room as seen by viewer; only the viewer's own hand is included
func (r *Room) Snapshot(viewer UserID) *StateSnapshot {
	players := make([]PlayerState, len(r.Players))
	for i, id := range r.Players {
		players[i] = PlayerState{ID: id, CardCount: len(r.Hands[id])}
	}

	var top *Card
	if n := len(r.Discard); n > 0 {
		c := r.Discard[n-1]
		top = &c
	}

	return &StateSnapshot{
		RoomID:      r.ID,
		Seq:         r.Seq,
		Phase:       r.Phase,
		Players:     players,
		CurrentTurn: r.CurrentPlayer(),
		Hand:        slices.Clone(r.Hands[viewer]),
		DiscardTop:  top,
		DrawPile:    len(r.DrawPile),
		Winner:      r.Winner,
	}
}
