package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/storage"
)

// Keys used in the underlying store
const (
	KeyToken = "token"
	KeyUsers = "users"
)

// Service persists the auth token and the user cache for one client session.
//
// Storage failures are logged and otherwise swallowed: a failed read looks
// like an absent key and a failed write is a no-op.
type Service struct {
	store  storage.Store
	logger *slog.Logger
}

// New creates a new session store service
func New(store storage.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With(slog.String("component", "sessionstore")),
	}
}

// Get returns the value for key, or ok=false if absent or unreadable
func (s *Service) Get(ctx context.Context, key string) (string, bool) {
	v, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, model.ErrKeyNotFound) {
			s.logger.Warn("session store read failed",
				slog.String("key", key),
				slog.Any("error", err))
		}
		return "", false
	}
	return v, true
}

// Set stores value under key
func (s *Service) Set(ctx context.Context, key, value string) {
	if err := s.store.Set(ctx, key, value); err != nil {
		s.logger.Warn("session store write failed",
			slog.String("key", key),
			slog.Any("error", err))
	}
}

// Token returns the persisted auth token, if any
func (s *Service) Token(ctx context.Context) (model.Token, bool) {
	v, ok := s.Get(ctx, KeyToken)
	if !ok || v == "" {
		return "", false
	}
	return model.Token(v), true
}

// SetToken persists the auth token
func (s *Service) SetToken(ctx context.Context, token model.Token) {
	s.Set(ctx, KeyToken, string(token))
}

// ClearToken removes the persisted auth token
func (s *Service) ClearToken(ctx context.Context) {
	if err := s.store.Delete(ctx, KeyToken); err != nil {
		s.logger.Warn("session store delete failed",
			slog.String("key", KeyToken),
			slog.Any("error", err))
	}
}

// Users returns the persisted user cache. Never nil.
func (s *Service) Users(ctx context.Context) map[model.UserID]model.User {
	users := make(map[model.UserID]model.User)

	v, ok := s.Get(ctx, KeyUsers)
	if !ok {
		return users
	}
	if err := json.Unmarshal([]byte(v), &users); err != nil {
		s.logger.Warn("session store user cache unreadable", slog.Any("error", err))
		return make(map[model.UserID]model.User)
	}
	return users
}

// SetUsers persists the user cache
func (s *Service) SetUsers(ctx context.Context, users map[model.UserID]model.User) {
	data, err := json.Marshal(users)
	if err != nil {
		s.logger.Warn("session store user cache encode failed", slog.Any("error", err))
		return
	}
	s.Set(ctx, KeyUsers, string(data))
}
