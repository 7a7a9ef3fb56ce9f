package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/cardroom/internal/model"
)

type StorageSuite struct {
	suite.Suite
	path    string
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "nested", "state.json")

	var err error
	s.storage, err = New(s.path)
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func (s *StorageSuite) TestNewWithoutFile() {
	_, err := s.storage.Get(s.ctx, "token")
	s.ErrorIs(err, model.ErrKeyNotFound)

	_, statErr := os.Stat(s.path)
	s.True(os.IsNotExist(statErr), "file should not be created until first write")
}

func (s *StorageSuite) TestSetPersistsAcrossReopen() {
	s.Require().NoError(s.storage.Set(s.ctx, "token", "abc"))
	s.Require().NoError(s.storage.Set(s.ctx, "users", `{"u1":{"id":"u1"}}`))

	reopened, err := New(s.path)
	s.Require().NoError(err)

	v, err := reopened.Get(s.ctx, "token")
	s.Require().NoError(err)
	s.Equal("abc", v)

	v, err = reopened.Get(s.ctx, "users")
	s.Require().NoError(err)
	s.Equal(`{"u1":{"id":"u1"}}`, v)
}

func (s *StorageSuite) TestFileIsPrivate() {
	s.Require().NoError(s.storage.Set(s.ctx, "token", "abc"))

	info, err := os.Stat(s.path)
	s.Require().NoError(err)
	s.Equal(os.FileMode(0600), info.Mode().Perm())
}

func (s *StorageSuite) TestDeletePersists() {
	_ = s.storage.Set(s.ctx, "token", "abc")
	s.Require().NoError(s.storage.Delete(s.ctx, "token"))

	reopened, err := New(s.path)
	s.Require().NoError(err)

	_, err = reopened.Get(s.ctx, "token")
	s.ErrorIs(err, model.ErrKeyNotFound)
}

func (s *StorageSuite) TestCorruptFile() {
	path := filepath.Join(s.T().TempDir(), "state.json")
	s.Require().NoError(os.WriteFile(path, []byte("not json"), 0600))

	_, err := New(path)
	s.Error(err)
}

func (s *StorageSuite) TestEmptyFile() {
	path := filepath.Join(s.T().TempDir(), "state.json")
	s.Require().NoError(os.WriteFile(path, nil, 0600))

	store, err := New(path)
	s.Require().NoError(err)
	_, err = store.Get(s.ctx, "token")
	s.ErrorIs(err, model.ErrKeyNotFound)
}
