package response

import (
	"github.com/mcoot/cardroom/internal/model"
)

// TokenResponse is the response for session endpoints
type TokenResponse struct {
	Token string `json:"token"`
}

// RoomResponse is the response after creating a room
type RoomResponse struct {
	RoomID string `json:"room_id"`
}

// User represents a user in API responses
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u model.User) User {
	return User{
		ID:          string(u.ID),
		DisplayName: u.DisplayName,
	}
}

// HealthResponse is the response of the health check
type HealthResponse struct {
	Status string `json:"status"`
}
