package storage

import (
	"context"
)

// Store is a session-scoped key-value store.
// Values are opaque to the store; Get returns model.ErrKeyNotFound for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
