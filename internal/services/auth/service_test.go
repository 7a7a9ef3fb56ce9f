package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/cardroom/internal/dependencies/mocks"
	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/storage/memory"
	"github.com/mcoot/cardroom/internal/token"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.service = New(s.storage, s.clock, s.random, DefaultConfig())
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestCreateGuest() {
	s.random.QueueString("WXYZ")

	tok, user, err := s.service.CreateGuest(s.ctx)
	s.Require().NoError(err)

	s.NotEmpty(tok)
	s.NotEmpty(user.ID)
	s.Equal("Guest-WXYZ", user.DisplayName)
}

func (s *ServiceSuite) TestGuestTokenCarriesIdentity() {
	tok, user, err := s.service.CreateGuest(s.ctx)
	s.Require().NoError(err)

	decoded, err := token.Decode(tok)
	s.Require().NoError(err)
	s.Equal(user, decoded)
}

func (s *ServiceSuite) TestCreateGuestPersistsUser() {
	_, user, err := s.service.CreateGuest(s.ctx)
	s.Require().NoError(err)

	got, err := s.service.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user, got)
	s.Equal(1, s.storage.Len())
}

func (s *ServiceSuite) TestGuestIDsAreUnique() {
	_, a, err := s.service.CreateGuest(s.ctx)
	s.Require().NoError(err)
	_, b, err := s.service.CreateGuest(s.ctx)
	s.Require().NoError(err)

	s.NotEqual(a.ID, b.ID)
}

func (s *ServiceSuite) TestValidateToken() {
	tok, user, err := s.service.CreateGuest(s.ctx)
	s.Require().NoError(err)

	got, err := s.service.ValidateToken(s.ctx, tok)
	s.Require().NoError(err)
	s.Equal(user, got)
}

func (s *ServiceSuite) TestValidateTokenExpired() {
	tok, _, err := s.service.CreateGuest(s.ctx)
	s.Require().NoError(err)

	s.clock.Advance(25 * time.Hour)

	_, err = s.service.ValidateToken(s.ctx, tok)
	s.ErrorIs(err, model.ErrInvalidToken)
}

func (s *ServiceSuite) TestValidateTokenForUnknownUser() {
	forged, err := token.Mint(DefaultConfig().Secret, model.User{ID: "u-ghost", DisplayName: "Ghost"}, s.clock.Now(), time.Hour)
	s.Require().NoError(err)

	_, err = s.service.ValidateToken(s.ctx, forged)
	s.ErrorIs(err, model.ErrInvalidToken)
}

func (s *ServiceSuite) TestValidateTokenTampered() {
	tok, _, err := s.service.CreateGuest(s.ctx)
	s.Require().NoError(err)

	parts := strings.Split(string(tok), ".")
	s.Require().Len(parts, 3)
	tampered := model.Token(parts[0] + "." + parts[1] + ".AAAA")

	_, err = s.service.ValidateToken(s.ctx, tampered)
	s.ErrorIs(err, model.ErrInvalidToken)
}

func (s *ServiceSuite) TestGetUserNotFound() {
	_, err := s.service.GetUser(s.ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)
}
