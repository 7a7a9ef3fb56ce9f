package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcoot/cardroom/internal/api"
	"github.com/mcoot/cardroom/internal/config"
	"github.com/mcoot/cardroom/internal/factory"
	"github.com/mcoot/cardroom/internal/services/auth"
	redisstorage "github.com/mcoot/cardroom/internal/storage/redis"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	factoryCfg := factory.ServerConfig{
		AuthConfig: auth.Config{
			Secret:          []byte(cfg.Secret),
			SessionDuration: cfg.SessionDuration,
		},
		Logger: logger,
		Store:  factory.StoreConfig{Type: cfg.Store},
	}

	// Configure Redis if storage type is redis
	if cfg.Store == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.Namespace = cfg.RedisNamespace
		redisCfg.SessionTTL = 0
		factoryCfg.Store.Redis = &redisCfg
	}

	if cfg.Secret == "" {
		logger.Warn("DEVSERVER_SECRET not set, using the development secret")
	}

	app, err := factory.NewServer(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close error", slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    app.AuthService,
		RoomController: app.RoomController,
		HubManager:     app.HubManager,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cleanupHubs(ctx, app, cfg.HubCleanupInterval)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server starting", slog.String("addr", server.Addr()), slog.String("store", cfg.Store))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		app.HubManager.Close()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

// cleanupHubs periodically drops hubs that have had no clients for a whole interval
func cleanupHubs(ctx context.Context, app *factory.Server, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.HubManager.CleanupEmptyHubs(interval)
		}
	}
}
