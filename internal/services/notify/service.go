package notify

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/cardroom/internal/dependencies/clock"
	"github.com/mcoot/cardroom/internal/model"
)

// Config holds configuration for the notifier
type Config struct {
	// TTL is how long a notification stays visible
	TTL time.Duration
}

// DefaultConfig returns default notifier configuration
func DefaultConfig() Config {
	return Config{
		TTL: 5 * time.Second,
	}
}

// Service holds transient, auto-dismissing notifications
type Service struct {
	clock  clock.Clock
	logger *slog.Logger
	cfg    Config

	mu          sync.Mutex
	items       []model.Notification
	subscribers map[int]func(model.Notification)
	nextSubID   int
}

// New creates a new notifier
func New(clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &Service{
		clock:       clk,
		logger:      logger.With(slog.String("component", "notify")),
		cfg:         cfg,
		subscribers: make(map[int]func(model.Notification)),
	}
}

// Info shows an informational notification
func (s *Service) Info(message string) model.Notification {
	return s.Push(model.LevelInfo, message)
}

// Error shows an error notification
func (s *Service) Error(message string) model.Notification {
	return s.Push(model.LevelError, message)
}

// Push adds a notification and delivers it to subscribers
func (s *Service) Push(level model.NotificationLevel, message string) model.Notification {
	now := s.clock.Now()
	n := model.Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}

	s.mu.Lock()
	s.items = append(s.pruneLocked(now), n)
	subs := make([]func(model.Notification), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.logger.Debug("notification",
		slog.String("level", string(level)),
		slog.String("message", message))

	for _, fn := range subs {
		fn(n)
	}
	return n
}

// Active returns the notifications that haven't expired or been dismissed, oldest first
func (s *Service) Active() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.pruneLocked(s.clock.Now())
	return slices.Clone(s.items)
}

// Dismiss removes a notification before it expires
func (s *Service) Dismiss(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.DeleteFunc(s.items, func(n model.Notification) bool {
		return n.ID == id
	})
}

// Subscribe registers fn to receive every new notification.
// The returned function removes the subscription.
func (s *Service) Subscribe(fn func(model.Notification)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Service) pruneLocked(now time.Time) []model.Notification {
	return slices.DeleteFunc(s.items, func(n model.Notification) bool {
		return n.Expired(now)
	})
}
