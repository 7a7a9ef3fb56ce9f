// Package ws is the game server client: HTTP for sessions, rooms and user
// lookup, and a websocket per room for snapshots and actions.
package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/token"
	"github.com/mcoot/cardroom/internal/transport"
)

// Config holds configuration for the client
type Config struct {
	// ServerURL is the base URL of the game server, e.g. http://localhost:8080
	ServerURL string
	// RequestTimeout bounds each HTTP request
	RequestTimeout time.Duration
	// DialTimeout bounds the websocket handshake
	DialTimeout time.Duration
	// ActionTimeout bounds the wait for an action's result
	ActionTimeout time.Duration
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL:      "http://localhost:8080",
		RequestTimeout: 30 * time.Second,
		DialTimeout:    10 * time.Second,
		ActionTimeout:  10 * time.Second,
	}
}

// Client talks to the game server
type Client struct {
	baseURL    string
	cfg        Config
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *slog.Logger
}

// Ensure Client implements the transport contract
var _ transport.Client = (*Client)(nil)

// New creates a new client
func New(cfg Config, logger *slog.Logger) *Client {
	defaults := DefaultConfig()
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaults.ServerURL
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ActionTimeout == 0 {
		cfg.ActionTimeout = defaults.ActionTimeout
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.ServerURL, "/"),
		cfg:     cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
		},
		logger: logger.With(slog.String("component", "transport")),
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

type roomResponse struct {
	RoomID string `json:"room_id"`
}

type userResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// LoginAnonymous asks the server for a new anonymous session
func (c *Client) LoginAnonymous(ctx context.Context) (model.Token, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions/anonymous", "", nil, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("server returned an empty token")
	}
	return model.Token(resp.Token), nil
}

// DecodeUserFromToken reads the identity carried by t without a round trip
func (c *Client) DecodeUserFromToken(t model.Token) (model.User, error) {
	return token.Decode(t)
}

// CreateRoom creates a new room
func (c *Client) CreateRoom(ctx context.Context, t model.Token, init model.RoomInit) (model.RoomID, error) {
	var resp roomResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/rooms", t, init, &resp); err != nil {
		return "", err
	}
	return model.RoomID(resp.RoomID), nil
}

// LookupUser fetches a user's display metadata
func (c *Client) LookupUser(ctx context.Context, id model.UserID) (model.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/"+url.PathEscape(string(id)), "", nil, &resp); err != nil {
		return model.User{}, err
	}
	return model.User{ID: model.UserID(resp.ID), DisplayName: resp.DisplayName}, nil
}

// Health checks the server is reachable
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", "", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("server status %q", resp.Status)
	}
	return nil
}

// Connect opens a websocket to roomID. The handshake runs in the
// background: the handle is returned at once and handshake errors arrive
// through onFailure.
func (c *Client) Connect(ctx context.Context, t model.Token, roomID model.RoomID, onUpdate transport.UpdateFunc, onFailure transport.FailureFunc) (transport.Handle, error) {
	if t == "" {
		return nil, model.ErrNotLoggedIn
	}

	u, err := c.websocketURL(roomID)
	if err != nil {
		return nil, err
	}

	conn := newConn(c, u, t, onUpdate, onFailure)
	go conn.run()
	return conn, nil
}

func (c *Client) websocketURL(roomID model.RoomID) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/rooms/" + url.PathEscape(string(roomID)) + "/ws"
	return u.String(), nil
}

// do performs an HTTP request against the API
func (c *Client) do(ctx context.Context, method, path string, t model.Token, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if t != "" {
		req.Header.Set("Authorization", "Bearer "+string(t))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
