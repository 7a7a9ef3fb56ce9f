package cli

import (
	"log/slog"

	"github.com/mcoot/cardroom/internal/config"
	"github.com/mcoot/cardroom/internal/factory"
	"github.com/mcoot/cardroom/internal/services/directory"
	"github.com/mcoot/cardroom/internal/services/notify"
	redisstorage "github.com/mcoot/cardroom/internal/storage/redis"
	"github.com/mcoot/cardroom/internal/transport/ws"
)

// clientConfig maps CLI configuration onto the client factory
func clientConfig(c config.Config, logger *slog.Logger) factory.ClientConfig {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = c.RedisURL
	redisCfg.Namespace = c.RedisNamespace
	redisCfg.SessionTTL = c.SessionTTL

	return factory.ClientConfig{
		Logger: logger,
		Store: factory.StoreConfig{
			Type:  c.Store,
			Path:  c.StateFile,
			Redis: &redisCfg,
		},
		Transport: ws.Config{
			ServerURL:      c.ServerURL,
			RequestTimeout: c.RequestTimeout,
			DialTimeout:    c.DialTimeout,
			ActionTimeout:  c.ActionTimeout,
		},
		Directory: directory.Config{
			LookupTimeout: c.LookupTimeout,
		},
		Notify: notify.Config{
			TTL: c.NotificationTTL,
		},
	}
}
