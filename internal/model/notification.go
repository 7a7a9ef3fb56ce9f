package model

import "time"

// NotificationLevel classifies a notification for presentation
type NotificationLevel string

const (
	LevelInfo  NotificationLevel = "info"
	LevelError NotificationLevel = "error"
)

// Notification is a transient message shown to the user until it expires
type Notification struct {
	ID        string            `json:"id"`
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Expired reports whether the notification should no longer be shown
func (n Notification) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}
