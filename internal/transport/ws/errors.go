package ws

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/cardroom/internal/model"
)

// Error codes returned by the game server
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidRoomInit     = "INVALID_ROOM_INIT"
	CodeUnknownAction       = "UNKNOWN_ACTION"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodeRoomFull            = "ROOM_FULL"
	CodeNotInRoom           = "NOT_IN_ROOM"
	CodeGameInProgress      = "GAME_IN_PROGRESS"
	CodeGameNotStarted      = "GAME_NOT_STARTED"
	CodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	CodeNotYourTurn         = "NOT_YOUR_TURN"
	CodeCardNotInHand       = "CARD_NOT_IN_HAND"
	CodeDrawPileEmpty       = "DRAW_PILE_EMPTY"
	CodeInternalError       = "INTERNAL_ERROR"
)

var codeErrors = map[string]error{
	CodeInvalidRoomInit:     model.ErrInvalidRoomInit,
	CodeUnknownAction:       model.ErrUnknownAction,
	CodeUnauthorized:        model.ErrInvalidToken,
	CodeUserNotFound:        model.ErrUserNotFound,
	CodeRoomNotFound:        model.ErrRoomNotFound,
	CodeRoomFull:            model.ErrRoomFull,
	CodeNotInRoom:           model.ErrNotInRoom,
	CodeGameInProgress:      model.ErrGameInProgress,
	CodeGameNotStarted:      model.ErrGameNotStarted,
	CodeInsufficientPlayers: model.ErrInsufficientPlayers,
	CodeNotYourTurn:         model.ErrNotYourTurn,
	CodeCardNotInHand:       model.ErrCardNotInHand,
	CodeDrawPileEmpty:       model.ErrDrawPileEmpty,
}

// APIError represents an error response from the API
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an API error
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Unwrap maps known codes back to their sentinel errors so callers can use errors.Is
func (e *APIError) Unwrap() error {
	return codeErrors[e.Code]
}

func parseAPIError(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Code != "" {
		errResp.Error.Status = status
		return &errResp.Error
	}
	return fmt.Errorf("HTTP %d: %s", status, string(body))
}
