package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	stdout io.Writer
	stderr io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, stdout, stderr io.Writer) *Output {
	return &Output{format: format, stdout: stdout, stderr: stderr}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.stderr, string(data))
	} else {
		_, _ = fmt.Fprintf(o.stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.stdout, string(data))
	} else {
		_, _ = fmt.Fprintln(o.stdout, msg)
	}
}

// PrintLine outputs data as a single line; JSON output is one object per line
func (o *Output) PrintLine(data any) {
	if o.format == "json" {
		line, _ := json.Marshal(data)
		_, _ = fmt.Fprintln(o.stdout, string(line))
	} else {
		o.printText(data)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case UserView:
		o.printUser(v)
	case LoginResult:
		o.printLoginResult(v)
	case RoomResult:
		o.printf("Room: %s\n", v.RoomID)
	case ActionResult:
		o.printActionResult(v)
	case RoomView:
		o.printRoom(v)
	case NotificationView:
		o.printf("[%s] %s\n", v.Level, v.Message)
	case HealthResult:
		o.printf("Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.stdout, format, args...)
}

// UserView is a user as shown to the terminal
type UserView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// LoginResult combines the user and token
type LoginResult struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

// RoomResult is printed after creating a room
type RoomResult struct {
	RoomID string `json:"room_id"`
}

// ActionResult is the server's verdict on an action
type ActionResult struct {
	Action  string `json:"action"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// PlayerView is one seat in a room
type PlayerView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CardCount   int    `json:"card_count"`
	IsTurn      bool   `json:"is_turn,omitempty"`
}

// RoomView is a state snapshot with player names resolved
type RoomView struct {
	RoomID     string       `json:"room_id"`
	Seq        int64        `json:"seq"`
	Phase      string       `json:"phase"`
	Players    []PlayerView `json:"players"`
	Hand       []string     `json:"hand,omitempty"`
	DiscardTop string       `json:"discard_top,omitempty"`
	DrawPile   int          `json:"draw_pile"`
	Winner     string       `json:"winner,omitempty"`
}

// NotificationView is a notification raised by the session
type NotificationView struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printUser(u UserView) {
	o.printf("User: %s (%s)\n", u.DisplayName, u.ID)
}

func (o *Output) printLoginResult(l LoginResult) {
	o.printUser(l.User)
	o.printf("Token: %s\n", l.Token)
}

func (o *Output) printActionResult(r ActionResult) {
	if r.OK {
		o.printf("%s: ok\n", r.Action)
		return
	}
	o.printf("%s: failed: %s\n", r.Action, r.Message)
}

func (o *Output) printRoom(r RoomView) {
	o.printf("Room: %s\n", r.RoomID)
	o.printf("Phase: %s (seq %d)\n", r.Phase, r.Seq)
	o.printf("Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		turn := ""
		if p.IsTurn {
			turn = " <- turn"
		}
		o.printf("  - %s (%s) - %d cards%s\n", p.DisplayName, p.ID, p.CardCount, turn)
	}
	if r.DiscardTop != "" {
		o.printf("Discard: %s\n", r.DiscardTop)
		o.printf("Draw pile: %d\n", r.DrawPile)
	}
	if len(r.Hand) > 0 {
		o.printf("Your hand: %s\n", strings.Join(r.Hand, " "))
	}
	if r.Winner != "" {
		o.printf("Winner: %s\n", r.Winner)
	}
}
