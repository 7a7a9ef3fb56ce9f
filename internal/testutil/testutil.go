// Package testutil holds helpers shared by tests that talk to a live dev server.
package testutil

import (
	"log/slog"
	"time"
)

// Polling bounds for assertions that wait on a websocket round trip
const (
	WaitFor = 2 * time.Second
	Tick    = 10 * time.Millisecond
)

// NopLogger returns a logger that drops every record
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
