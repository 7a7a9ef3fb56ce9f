package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcoot/cardroom/internal/model"
)

// CreateRoomRequest is the request body for creating a room.
// Zero fields fall back to the defaults.
type CreateRoomRequest struct {
	MaxPlayers int `json:"max_players,omitempty"`
	HandSize   int `json:"hand_size,omitempty"`
}

// RoomInit converts the request into room settings
func (r CreateRoomRequest) RoomInit() model.RoomInit {
	init := model.DefaultRoomInit()
	if r.MaxPlayers > 0 {
		init.MaxPlayers = r.MaxPlayers
	}
	if r.HandSize > 0 {
		init.HandSize = r.HandSize
	}
	return init
}

// DecodeOptional decodes a JSON body into v, treating an empty body as zero values
func DecodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
