// Package realtime pushes room state to websocket clients and applies
// the actions they send
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/transport/wire"
)

// Rooms is the room state the hub reads snapshots from and applies actions to
type Rooms interface {
	Snapshot(ctx context.Context, id model.RoomID, viewer model.UserID) (*model.StateSnapshot, error)
	Apply(ctx context.Context, id model.RoomID, user model.UserID, action model.Action) error
}

// Hub manages websocket clients for a single room
type Hub struct {
	roomID  model.RoomID
	rooms   Rooms
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// emptySince is when the hub last had no clients; zero while it has some
	emptySince time.Time

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	refresh    chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new Hub for a room
func NewHub(roomID model.RoomID, rooms Rooms, logger *slog.Logger) *Hub {
	return &Hub{
		roomID:     roomID,
		rooms:      rooms,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("room", string(roomID))),
		emptySince: time.Now(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		refresh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("realtime hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.emptySince = time.Time{}
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("realtime client registered",
				slog.String("user_id", string(client.userID)),
				slog.Int("total_clients", clientCount))
			h.push(client)

		case client := <-h.unregister:
			h.remove(client)

		case <-h.refresh:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()
			for _, client := range clients {
				h.push(client)
			}

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.quit)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("realtime hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// push sends client the room as it sees it. Clients that can't keep up are dropped.
func (h *Hub) push(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := h.rooms.Snapshot(ctx, h.roomID, client.userID)
	if err != nil {
		h.logger.Error("failed to build snapshot",
			slog.String("user_id", string(client.userID)),
			slog.Any("error", err))
		return
	}

	msg, err := json.Marshal(wire.StateFrame(snap))
	if err != nil {
		h.logger.Error("failed to encode snapshot", slog.Any("error", err))
		return
	}

	if !client.enqueue(msg) {
		h.logger.Warn("realtime client dropped - buffer full",
			slog.String("user_id", string(client.userID)))
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.quit)
	clientCount := len(h.clients)
	if clientCount == 0 {
		h.emptySince = time.Now()
	}
	h.mu.Unlock()

	h.logger.Info("realtime client unregistered",
		slog.String("user_id", string(client.userID)),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", clientCount))
}

// Register adds a client to the hub; it receives a snapshot straight away
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.quit)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Refresh asks the hub to push fresh snapshots to every client.
// Refreshes requested while one is pending are coalesced.
func (h *Hub) Refresh() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

// Apply performs an action for user and refreshes everyone on success
func (h *Hub) Apply(ctx context.Context, user model.UserID, action model.Action) error {
	if err := h.rooms.Apply(ctx, h.roomID, user, action); err != nil {
		return err
	}
	h.Refresh()
	return nil
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// idle reports whether the hub has had no clients for at least d
func (h *Hub) idle(d time.Duration) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) == 0 && time.Since(h.emptySince) >= d
}

// HubManager manages hubs for all rooms
type HubManager struct {
	rooms  Rooms
	hubs   map[model.RoomID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(rooms Rooms, logger *slog.Logger) *HubManager {
	return &HubManager{
		rooms:  rooms,
		hubs:   make(map[model.RoomID]*Hub),
		logger: logger.With(slog.String("component", "realtime")),
	}
}

// GetOrCreateHub returns the hub for a room, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(roomID model.RoomID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomID]; ok {
		return hub
	}

	hub := NewHub(roomID, m.rooms, m.logger)
	m.hubs[roomID] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a room, or nil if it doesn't exist
func (m *HubManager) GetHub(roomID model.RoomID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[roomID]
}

// CleanupEmptyHubs removes hubs that have had no clients for at least minIdle.
// A hub handed out by GetOrCreateHub counts as empty from its creation, so
// minIdle must cover the time a new connection takes to register.
func (m *HubManager) CleanupEmptyHubs(minIdle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removedCount := 0
	for id, hub := range m.hubs {
		if hub.idle(minIdle) {
			hub.Close()
			delete(m.hubs, id)
			removedCount++
		}
	}
	if removedCount > 0 {
		m.logger.Info("realtime empty hubs cleaned up", slog.Int("removed", removedCount))
	}
}

// Close stops every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, id)
	}
}
