package factory

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/cardroom/internal/api/realtime"
	"github.com/mcoot/cardroom/internal/dependencies/clock"
	"github.com/mcoot/cardroom/internal/dependencies/random"
	"github.com/mcoot/cardroom/internal/services/auth"
	"github.com/mcoot/cardroom/internal/services/connection"
	"github.com/mcoot/cardroom/internal/services/directory"
	"github.com/mcoot/cardroom/internal/services/notify"
	"github.com/mcoot/cardroom/internal/services/room"
	"github.com/mcoot/cardroom/internal/services/session"
	"github.com/mcoot/cardroom/internal/services/sessionstore"
	"github.com/mcoot/cardroom/internal/storage"
	"github.com/mcoot/cardroom/internal/storage/file"
	"github.com/mcoot/cardroom/internal/storage/memory"
	redisstorage "github.com/mcoot/cardroom/internal/storage/redis"
	"github.com/mcoot/cardroom/internal/transport"
	"github.com/mcoot/cardroom/internal/transport/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeFile   = "file"
	StorageTypeRedis  = "redis"
)

// StoreConfig selects and configures a storage backend
type StoreConfig struct {
	// Type selects the backend ("memory", "file" or "redis").
	// If empty, defaults to "memory"
	Type string
	// Path is the state file (file backend). If empty, file.DefaultPath() is used
	Path string
	// Redis holds Redis connection settings (required if Type is "redis")
	Redis *redisstorage.Config
}

// NewStore opens the storage backend described by cfg
func NewStore(cfg StoreConfig) (storage.Store, error) {
	switch cfg.Type {
	case "", StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeFile:
		path := cfg.Path
		if path == "" {
			path = file.DefaultPath()
		}
		fileStore, err := file.New(path)
		if err != nil {
			return nil, err
		}
		return fileStore, nil
	case StorageTypeRedis:
		if cfg.Redis == nil {
			return nil, errors.New("redis config required when storage type is redis")
		}
		redisStore, err := redisstorage.New(*cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redisStore, nil
	default:
		return nil, fmt.Errorf("invalid storage type %q: must be 'memory', 'file' or 'redis'", cfg.Type)
	}
}

func nopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Server contains the wired components of the development game server
type Server struct {
	// Storage
	Storage storage.Store

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService    *auth.Service
	RoomController *room.Controller
	HubManager     *realtime.HubManager
}

// ServerConfig holds configuration for the server factory
type ServerConfig struct {
	// AuthConfig holds configuration for the auth service (optional)
	// Zero fields fall back to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// Store selects the storage backend
	Store StoreConfig
}

// NewServer creates a server with all dependencies wired
func NewServer(cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger()
	}

	store, err := NewStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	return newServerWithDependencies(store, clock.New(), random.New(), cfg.AuthConfig, logger), nil
}

// newServerWithDependencies creates a Server with the given dependencies (useful for testing)
func newServerWithDependencies(store storage.Store, clk clock.Clock, rnd random.Random, authCfg auth.Config, logger *slog.Logger) *Server {
	roomController := room.NewController(store, clk, rnd)

	return &Server{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		AuthService:    auth.New(store, clk, rnd, authCfg),
		RoomController: roomController,
		HubManager:     realtime.NewHubManager(roomController, logger),
	}
}

// Close releases the server's resources
func (s *Server) Close() error {
	s.HubManager.Close()
	return s.Storage.Close()
}

// Client contains the wired components of the session client
type Client struct {
	// Storage
	Storage storage.Store

	// External dependencies
	Clock     clock.Clock
	Transport transport.Client

	// Services
	SessionStore *sessionstore.Service
	Directory    *directory.Service
	Connections  *connection.Manager
	Notifier     *notify.Service
	Session      *session.Controller
}

// ClientConfig holds configuration for the client factory
type ClientConfig struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// Store selects where the session is persisted
	Store StoreConfig
	// Transport configures the game server client
	Transport ws.Config
	// Directory configures the user directory cache
	Directory directory.Config
	// Notify configures the notifier
	Notify notify.Config
}

// NewClient creates a session client with all dependencies wired
func NewClient(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger()
	}

	store, err := NewStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	return newClientWithDependencies(store, ws.New(cfg.Transport, logger), clock.New(), cfg, logger), nil
}

// newClientWithDependencies creates a Client with the given dependencies (useful for testing)
func newClientWithDependencies(store storage.Store, t transport.Client, clk clock.Clock, cfg ClientConfig, logger *slog.Logger) *Client {
	sessions := sessionstore.New(store, logger)
	dir := directory.New(t, sessions, cfg.Directory, logger)
	manager := connection.NewManager(t, logger)
	notifier := notify.New(clk, cfg.Notify, logger)
	controller := session.NewController(t, sessions, dir, manager, notifier, logger)

	return &Client{
		Storage:      store,
		Clock:        clk,
		Transport:    t,
		SessionStore: sessions,
		Directory:    dir,
		Connections:  manager,
		Notifier:     notifier,
		Session:      controller,
	}
}

// Close tears down the session and releases the store
func (c *Client) Close() error {
	c.Session.Close()
	c.Directory.Wait()
	return c.Storage.Close()
}
