package model

// UserID uniquely identifies a user across the system
type UserID string

// Token is an opaque anonymous-session token issued by the game server.
// It carries the holder's identity and can be decoded locally.
type Token string

// User is the resolved display metadata for a user.
// Immutable once resolved.
type User struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"display_name"`
}
