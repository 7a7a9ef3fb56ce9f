package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/cardroom/internal/dependencies/clock"
	"github.com/mcoot/cardroom/internal/dependencies/random"
	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/storage"
	"github.com/mcoot/cardroom/internal/token"
)

const (
	// GuestSuffixLength is the length of the random part of guest names
	GuestSuffixLength = 4
	// GuestSuffixAlphabet avoids easily confused characters
	GuestSuffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Config holds configuration for the auth service
type Config struct {
	// Secret signs session tokens
	Secret []byte
	// SessionDuration is how long an issued token stays valid
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Secret:          []byte("cardroom-dev-secret"),
		SessionDuration: 24 * time.Hour,
	}
}

// Service issues anonymous sessions and keeps the user records behind them
type Service struct {
	storage storage.Store
	clock   clock.Clock
	random  random.Random
	cfg     Config
}

// New creates a new auth service
func New(store storage.Store, clk clock.Clock, rnd random.Random, cfg Config) *Service {
	defaults := DefaultConfig()
	if len(cfg.Secret) == 0 {
		cfg.Secret = defaults.Secret
	}
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = defaults.SessionDuration
	}
	return &Service{
		storage: store,
		clock:   clk,
		random:  rnd,
		cfg:     cfg,
	}
}

// CreateGuest creates an anonymous user and returns a token for it
func (s *Service) CreateGuest(ctx context.Context) (model.Token, model.User, error) {
	user := model.User{
		ID:          model.UserID(uuid.NewString()),
		DisplayName: "Guest-" + s.random.String(GuestSuffixLength, GuestSuffixAlphabet),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return "", model.User{}, err
	}
	if err := s.storage.Set(ctx, userKey(user.ID), string(data)); err != nil {
		return "", model.User{}, fmt.Errorf("save user: %w", err)
	}

	t, err := token.Mint(s.cfg.Secret, user, s.clock.Now(), s.cfg.SessionDuration)
	if err != nil {
		return "", model.User{}, err
	}
	return t, user, nil
}

// ValidateToken checks a token and returns the user it belongs to
func (s *Service) ValidateToken(ctx context.Context, t model.Token) (model.User, error) {
	claimed, err := token.Verify(s.cfg.Secret, t, s.clock.Now)
	if err != nil {
		return model.User{}, err
	}

	// Tokens for users this server never issued are rejected
	if _, err := s.GetUser(ctx, claimed.ID); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.User{}, model.ErrInvalidToken
		}
		return model.User{}, err
	}
	return claimed, nil
}

// GetUser returns a user's public record
func (s *Service) GetUser(ctx context.Context, id model.UserID) (model.User, error) {
	data, err := s.storage.Get(ctx, userKey(id))
	if err != nil {
		if errors.Is(err, model.ErrKeyNotFound) {
			return model.User{}, model.ErrUserNotFound
		}
		return model.User{}, err
	}

	var user model.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return model.User{}, fmt.Errorf("decode user %s: %w", id, err)
	}
	return user, nil
}

func userKey(id model.UserID) string {
	return "user:" + string(id)
}
