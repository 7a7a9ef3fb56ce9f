package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/cardroom/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
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

func (s *StorageSuite) TestSetOverwrites() {
	_ = s.storage.Set(s.ctx, "token", "abc")
	_ = s.storage.Set(s.ctx, "token", "def")

	v, err := s.storage.Get(s.ctx, "token")
	s.Require().NoError(err)
	s.Equal("def", v)
	s.Equal(1, s.storage.Len())
}

func (s *StorageSuite) TestDelete() {
	_ = s.storage.Set(s.ctx, "token", "abc")

	err := s.storage.Delete(s.ctx, "token")
	s.Require().NoError(err)

	_, err = s.storage.Get(s.ctx, "token")
	s.ErrorIs(err, model.ErrKeyNotFound)
}

func (s *StorageSuite) TestDeleteMissingKeyIsNoop() {
	s.NoError(s.storage.Delete(s.ctx, "nonexistent"))
}
