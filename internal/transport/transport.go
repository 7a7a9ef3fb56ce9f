// Package transport holds the contracts between the session core and the
// networking layer that talks to the game server.
package transport

import (
	"context"

	"github.com/mcoot/cardroom/internal/model"
)

// UpdateFunc receives every state snapshot pushed on a connection, in order
type UpdateFunc func(snapshot *model.StateSnapshot)

// FailureFunc receives the terminal error of a connection.
// It is called at most once per connection and never after Close.
type FailureFunc func(err error)

// Handle is one live connection to a room
type Handle interface {
	// ID identifies the connection attempt, for logging
	ID() string

	// Send dispatches an action and waits for the server's verdict
	Send(ctx context.Context, action model.Action) model.Result

	// Close tears the connection down
	Close() error
}

// Client is the full contract of a game server client
type Client interface {
	LoginAnonymous(ctx context.Context) (model.Token, error)
	DecodeUserFromToken(token model.Token) (model.User, error)
	CreateRoom(ctx context.Context, token model.Token, init model.RoomInit) (model.RoomID, error)
	Connect(ctx context.Context, token model.Token, roomID model.RoomID, onUpdate UpdateFunc, onFailure FailureFunc) (Handle, error)
	LookupUser(ctx context.Context, id model.UserID) (model.User, error)
}
