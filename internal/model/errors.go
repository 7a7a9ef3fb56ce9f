package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrLoginInProgress = errors.New("login already in progress")
	ErrInvalidToken    = errors.New("invalid token")

	// Connection errors
	ErrNotConnected     = errors.New("not connected")
	ErrConnectionClosed = errors.New("connection closed")

	// Room errors
	ErrRoomNotFound        = errors.New("room not found")
	ErrInvalidRoomInit     = errors.New("invalid room settings")
	ErrRoomFull            = errors.New("room is full")
	ErrNotInRoom           = errors.New("player is not in room")
	ErrGameInProgress      = errors.New("game is in progress")
	ErrGameNotStarted      = errors.New("game has not started")
	ErrInsufficientPlayers = errors.New("insufficient players to start game")

	// Game errors
	ErrNotYourTurn   = errors.New("not your turn")
	ErrCardNotInHand = errors.New("card is not in hand")
	ErrDrawPileEmpty = errors.New("draw pile is empty")
	ErrUnknownAction = errors.New("unknown action")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Storage errors
	ErrKeyNotFound = errors.New("key not found")
)
