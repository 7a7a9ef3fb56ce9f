package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/cardroom/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.Namespace = "alice"
	cfg.SessionTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestSetAndGet() {
	err := s.storage.Set(s.ctx, "token", "abc")
	s.Require().NoError(err)

	v, err := s.storage.Get(s.ctx, "token")
	s.Require().NoError(err)
	s.Equal("abc", v)
}

func (s *StorageSuite) TestGetMissingKey() {
	_, err := s.storage.Get(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrKeyNotFound)
}

func (s *StorageSuite) TestKeysAreNamespaced() {
	_ = s.storage.Set(s.ctx, "token", "abc")

	s.True(s.mini.Exists("cardroom:session:alice:token"))

	other := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), Config{Namespace: "bob"})
	defer func() { _ = other.Close() }()

	_, err := other.Get(s.ctx, "token")
	s.ErrorIs(err, model.ErrKeyNotFound)
}

func (s *StorageSuite) TestSessionTTLApplied() {
	_ = s.storage.Set(s.ctx, "token", "abc")

	ttl := s.mini.TTL(sessionKey("alice", "token"))
	s.Equal(time.Hour, ttl)
}

func (s *StorageSuite) TestZeroTTLMeansNoExpiry() {
	store := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), Config{Namespace: "carol"})
	defer func() { _ = store.Close() }()

	_ = store.Set(s.ctx, "token", "abc")

	s.Equal(time.Duration(0), s.mini.TTL(sessionKey("carol", "token")))
}

func (s *StorageSuite) TestExpiredKeyIsAbsent() {
	_ = s.storage.Set(s.ctx, "token", "abc")

	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.Get(s.ctx, "token")
	s.ErrorIs(err, model.ErrKeyNotFound)
}

func (s *StorageSuite) TestDelete() {
	_ = s.storage.Set(s.ctx, "token", "abc")

	err := s.storage.Delete(s.ctx, "token")
	s.Require().NoError(err)

	_, err = s.storage.Get(s.ctx, "token")
	s.ErrorIs(err, model.ErrKeyNotFound)
}
