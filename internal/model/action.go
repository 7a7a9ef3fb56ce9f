package model

// ActionName identifies an action sent over a live connection
type ActionName string

const (
	ActionJoin      ActionName = "join"
	ActionStartGame ActionName = "start_game"
	ActionPlayCard  ActionName = "play_card"
	ActionDrawCard  ActionName = "draw_card"
	ActionEndGame   ActionName = "end_game"
)

// Action is a named request dispatched to the server on the current connection
type Action struct {
	Name    ActionName
	Payload any
}

// PlayCardPayload is the payload of a play_card action
type PlayCardPayload struct {
	Card Card `json:"card"`
}

// Result is the typed outcome of a dispatched action.
// A failed result always carries a human-readable message.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Success returns a successful result
func Success() Result {
	return Result{OK: true}
}

// Failure returns a failed result with the given message
func Failure(message string) Result {
	return Result{OK: false, Message: message}
}

// FailureFromError converts an error into a failed result
func FailureFromError(err error) Result {
	return Failure(err.Error())
}
