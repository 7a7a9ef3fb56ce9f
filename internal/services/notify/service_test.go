package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/cardroom/internal/dependencies/mocks"
	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.clock, Config{TTL: 5 * time.Second}, testutil.NopLogger())
}

func (s *ServiceSuite) TestPushIsActive() {
	n := s.service.Error("Not your turn")

	s.NotEmpty(n.ID)
	s.Equal(model.LevelError, n.Level)
	s.Equal(s.clock.Now().Add(5*time.Second), n.ExpiresAt)

	active := s.service.Active()
	s.Require().Len(active, 1)
	s.Equal("Not your turn", active[0].Message)
}

func (s *ServiceSuite) TestAutoDismissAfterTTL() {
	s.service.Info("It's your turn!")

	s.clock.Advance(4 * time.Second)
	s.Len(s.service.Active(), 1)

	s.clock.Advance(time.Second)
	s.Empty(s.service.Active())
}

func (s *ServiceSuite) TestActiveOrdering() {
	s.service.Info("first")
	s.clock.Advance(time.Second)
	s.service.Info("second")

	active := s.service.Active()
	s.Require().Len(active, 2)
	s.Equal("first", active[0].Message)
	s.Equal("second", active[1].Message)
}

func (s *ServiceSuite) TestDismiss() {
	keep := s.service.Info("keep")
	drop := s.service.Info("drop")

	s.service.Dismiss(drop.ID)

	active := s.service.Active()
	s.Require().Len(active, 1)
	s.Equal(keep.ID, active[0].ID)
}

func (s *ServiceSuite) TestSubscribe() {
	var got []string
	unsubscribe := s.service.Subscribe(func(n model.Notification) {
		got = append(got, n.Message)
	})

	s.service.Info("one")
	unsubscribe()
	s.service.Info("two")

	s.Equal([]string{"one"}, got)
}
