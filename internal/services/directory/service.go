package directory

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/services/sessionstore"
)

// Lookup resolves a user id to its display metadata over the network
type Lookup interface {
	LookupUser(ctx context.Context, id model.UserID) (model.User, error)
}

// Config holds configuration for the directory
type Config struct {
	// LookupTimeout bounds each background lookup
	LookupTimeout time.Duration
}

// DefaultConfig returns default directory configuration
func DefaultConfig() Config {
	return Config{
		LookupTimeout: 10 * time.Second,
	}
}

// Service is the user directory cache: an in-memory view of user records,
// persisted through the session store and filled from Lookup on a miss.
//
// Resolve never blocks on the network. A miss returns the raw id as a
// placeholder and starts a background lookup; the corrected name shows up
// on a later Resolve (or via Subscribe). Do not make Resolve wait for the
// lookup: callers rely on it being safe to call from render paths.
type Service struct {
	lookup Lookup
	store  *sessionstore.Service
	logger *slog.Logger
	cfg    Config

	group singleflight.Group
	wg    sync.WaitGroup

	// persistMu orders writes of the user cache to the store
	persistMu sync.Mutex

	mu          sync.RWMutex
	users       map[model.UserID]model.User
	pending     map[model.UserID]struct{}
	failed      map[model.UserID]struct{}
	subscribers map[int]func(model.User)
	nextSubID   int
}

// New creates a new directory service
func New(lookup Lookup, store *sessionstore.Service, cfg Config, logger *slog.Logger) *Service {
	if cfg.LookupTimeout == 0 {
		cfg.LookupTimeout = DefaultConfig().LookupTimeout
	}
	return &Service{
		lookup:      lookup,
		store:       store,
		logger:      logger.With(slog.String("component", "directory")),
		cfg:         cfg,
		users:       make(map[model.UserID]model.User),
		pending:     make(map[model.UserID]struct{}),
		failed:      make(map[model.UserID]struct{}),
		subscribers: make(map[int]func(model.User)),
	}
}

// Load merges the persisted user cache into memory
func (s *Service) Load(ctx context.Context) {
	persisted := s.store.Users(ctx)

	s.mu.Lock()
	for id, u := range persisted {
		if _, ok := s.users[id]; !ok {
			s.users[id] = u
		}
	}
	count := len(s.users)
	s.mu.Unlock()

	s.logger.Debug("user cache loaded", slog.Int("users", count))
}

// Resolve returns the display name for id.
// On a miss it returns the id itself and resolves in the background.
func (s *Service) Resolve(id model.UserID) string {
	if id == "" {
		return ""
	}

	s.mu.Lock()
	if u, ok := s.users[id]; ok {
		s.mu.Unlock()
		return displayName(u)
	}
	if _, ok := s.failed[id]; ok {
		s.mu.Unlock()
		return string(id)
	}
	if _, ok := s.pending[id]; ok {
		s.mu.Unlock()
		return string(id)
	}
	s.pending[id] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.resolveInBackground(id)

	return string(id)
}

// Get returns the cached record for id without triggering a lookup
func (s *Service) Get(id model.UserID) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// Lookup returns the record for id, blocking on the network on a miss.
// Concurrent callers (including background resolution) share one request.
func (s *Service) Lookup(ctx context.Context, id model.UserID) (model.User, error) {
	if u, ok := s.Get(id); ok {
		return u, nil
	}
	return s.fetch(ctx, id)
}

// Seed records a user without a lookup, e.g. the current user decoded from a token
func (s *Service) Seed(ctx context.Context, u model.User) {
	s.put(ctx, u)
}

// Subscribe registers fn to be called whenever a record is added.
// The returned function removes the subscription.
func (s *Service) Subscribe(fn func(model.User)) func() {
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

// Wait blocks until all background lookups have finished
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) resolveInBackground(id model.UserID) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LookupTimeout)
	defer cancel()

	_, err := s.fetch(ctx, id)

	s.mu.Lock()
	delete(s.pending, id)
	if err != nil {
		// No retry: the placeholder stays for the rest of the session
		s.failed[id] = struct{}{}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug("user lookup failed",
			slog.String("user_id", string(id)),
			slog.Any("error", err))
	}
}

func (s *Service) fetch(ctx context.Context, id model.UserID) (model.User, error) {
	v, err, _ := s.group.Do(string(id), func() (any, error) {
		if u, ok := s.Get(id); ok {
			return u, nil
		}
		u, err := s.lookup.LookupUser(ctx, id)
		if err != nil {
			return model.User{}, err
		}
		if u.ID == "" {
			u.ID = id
		}
		s.put(ctx, u)
		return u, nil
	})
	if err != nil {
		return model.User{}, err
	}
	return v.(model.User), nil
}

func (s *Service) put(ctx context.Context, u model.User) {
	s.mu.Lock()
	// Records are immutable once resolved
	if _, ok := s.users[u.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.users[u.ID] = u
	delete(s.failed, u.ID)
	subs := make([]func(model.User), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.persist(ctx)

	for _, fn := range subs {
		fn(u)
	}
}

// persist writes the current user cache. The copy is taken while holding
// persistMu so the last write always carries every record put before it.
func (s *Service) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	snapshot := maps.Clone(s.users)
	s.mu.RUnlock()

	s.store.SetUsers(ctx, snapshot)
}

func displayName(u model.User) string {
	if u.DisplayName == "" {
		return string(u.ID)
	}
	return u.DisplayName
}
