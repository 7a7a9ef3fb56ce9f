package factory

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/cardroom/internal/api"
	"github.com/mcoot/cardroom/internal/dependencies/clock"
	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/storage"
	"github.com/mcoot/cardroom/internal/storage/memory"
	"github.com/mcoot/cardroom/internal/testutil"
	"github.com/mcoot/cardroom/internal/transport/ws"
)

// IntegrationSuite drives real session clients against the dev server over HTTP and websockets
type IntegrationSuite struct {
	suite.Suite
	server  *TestServer
	http    *httptest.Server
	clients []*Client
	ctx     context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.ctx = context.Background()
	s.server = NewTestServer()
	s.http = httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		AuthService:    s.server.AuthService,
		RoomController: s.server.RoomController,
		HubManager:     s.server.HubManager,
	}))
	s.clients = nil
}

func (s *IntegrationSuite) TearDownTest() {
	for _, c := range s.clients {
		_ = c.Close()
	}
	s.http.Close()
	_ = s.server.Close()
}

func (s *IntegrationSuite) newClient(store storage.Store) *Client {
	logger := testutil.NopLogger()
	t := ws.New(ws.Config{ServerURL: s.http.URL}, logger)
	c := newClientWithDependencies(store, t, clock.New(), ClientConfig{}, logger)
	c.Session.Start(s.ctx)
	s.clients = append(s.clients, c)
	return c
}

func (s *IntegrationSuite) hasNotification(c *Client, message string) func() bool {
	return func() bool {
		for _, n := range c.Session.Notifications() {
			if n.Message == message {
				return true
			}
		}
		return false
	}
}

func (s *IntegrationSuite) seated(c *Client, ids ...model.UserID) func() bool {
	return func() bool {
		snap := c.Session.State().PlayerState
		if snap == nil {
			return false
		}
		for _, id := range ids {
			if !snap.HasPlayer(id) {
				return false
			}
		}
		return true
	}
}

// twoPlayerRoom has alice create a room and both players join it
func (s *IntegrationSuite) twoPlayerRoom() (alice, bob *Client, roomID model.RoomID) {
	s.server.MockRandom.QueueString("ALCE", "ROOM01", "BOBB")

	alice = s.newClient(memory.New())
	bob = s.newClient(memory.New())

	roomID, err := alice.Session.CreateGame(s.ctx)
	s.Require().NoError(err)

	res, err := alice.Session.JoinGame(s.ctx, roomID)
	s.Require().NoError(err)
	s.Require().True(res.OK, res.Message)

	res, err = bob.Session.JoinGame(s.ctx, roomID)
	s.Require().NoError(err)
	s.Require().True(res.OK, res.Message)

	aliceID := alice.Session.State().User.ID
	bobID := bob.Session.State().User.ID
	s.Require().Eventually(s.seated(alice, aliceID, bobID), testutil.WaitFor, testutil.Tick)
	s.Require().Eventually(s.seated(bob, aliceID, bobID), testutil.WaitFor, testutil.Tick)
	return alice, bob, roomID
}

func (s *IntegrationSuite) TestCreateGameLogsInAndJoins() {
	s.server.MockRandom.QueueString("ALCE", "ROOM01")
	alice := s.newClient(memory.New())

	roomID, err := alice.Session.CreateGame(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.RoomID("ROOM01"), roomID)

	state := alice.Session.State()
	s.Require().True(state.LoggedIn())
	s.Equal("Guest-ALCE", state.User.DisplayName)

	token, ok := alice.SessionStore.Token(s.ctx)
	s.True(ok)
	s.Equal(state.Token, token)

	res, err := alice.Session.JoinGame(s.ctx, roomID)
	s.Require().NoError(err)
	s.True(res.OK)

	s.Eventually(s.seated(alice, state.User.ID), testutil.WaitFor, testutil.Tick)
	s.Equal(roomID, alice.Session.State().RoomID)
	s.False(alice.Session.State().Connecting)
}

func (s *IntegrationSuite) TestTurnNotificationsFollowPlay() {
	alice, bob, _ := s.twoPlayerRoom()

	res := alice.Session.StartGame(s.ctx)
	s.Require().True(res.OK, res.Message)

	s.Eventually(s.hasNotification(alice, "It's your turn!"), testutil.WaitFor, testutil.Tick)
	s.Eventually(func() bool {
		snap := bob.Session.State().PlayerState
		return snap != nil && snap.Phase == model.PhasePlaying && len(snap.Hand) == 7
	}, testutil.WaitFor, testutil.Tick)

	bobID := bob.Session.State().User.ID
	s.Eventually(func() bool {
		return alice.Session.GetUserName(bobID) == "Guest-BOBB"
	}, testutil.WaitFor, testutil.Tick)

	hand := alice.Session.State().PlayerState.Hand
	s.Require().NotEmpty(hand)
	res = alice.Session.PlayCard(s.ctx, hand[0])
	s.Require().True(res.OK, res.Message)

	s.Eventually(s.hasNotification(bob, "It's your turn!"), testutil.WaitFor, testutil.Tick)
	s.Eventually(s.hasNotification(alice, "It's Guest-BOBB's turn"), testutil.WaitFor, testutil.Tick)
}

func (s *IntegrationSuite) TestOtherPlayersNamesResolve() {
	alice, bob, _ := s.twoPlayerRoom()
	aliceID := alice.Session.State().User.ID

	// The first call may return the id placeholder while the lookup runs
	_ = bob.Session.GetUserName(aliceID)
	s.Eventually(func() bool {
		return bob.Session.GetUserName(aliceID) == "Guest-ALCE"
	}, testutil.WaitFor, testutil.Tick)
}

func (s *IntegrationSuite) TestRejectedActionKeepsConnection() {
	s.server.MockRandom.QueueString("ALCE", "ROOM01")
	alice := s.newClient(memory.New())

	roomID, err := alice.Session.CreateGame(s.ctx)
	s.Require().NoError(err)
	res, err := alice.Session.JoinGame(s.ctx, roomID)
	s.Require().NoError(err)
	s.Require().True(res.OK)

	res = alice.Session.StartGame(s.ctx)
	s.False(res.OK)
	s.Equal("Not enough players to start", res.Message)
	s.True(s.hasNotification(alice, "Not enough players to start")())

	state := alice.Session.State()
	s.Equal(roomID, state.RoomID)
	s.NoError(state.ConnectionError)
}

func (s *IntegrationSuite) TestJoinUnknownRoomReportsConnectionError() {
	alice := s.newClient(memory.New())

	res, err := alice.Session.JoinGame(s.ctx, "NOPE00")
	s.Require().ErrorIs(err, model.ErrRoomNotFound)
	s.False(res.OK)

	state := alice.Session.State()
	s.ErrorIs(state.ConnectionError, model.ErrRoomNotFound)
	s.False(state.Connecting)
	s.Nil(state.PlayerState)

	notes := alice.Session.Notifications()
	s.Require().Len(notes, 1)
	s.Contains(notes[0].Message, "Connection error:")
}

func (s *IntegrationSuite) TestSessionSurvivesRestart() {
	store := memory.New()
	first := s.newClient(store)
	_, err := first.Session.Login(s.ctx)
	s.Require().NoError(err)
	user := first.Session.State().User

	second := s.newClient(store)
	state := second.Session.State()
	s.Require().True(state.LoggedIn())
	s.Equal(*user, *state.User)
}

func (s *IntegrationSuite) TestEndGameLeavesRoom() {
	alice, bob, _ := s.twoPlayerRoom()

	res := alice.Session.EndGame(s.ctx)
	s.True(res.OK, res.Message)
	s.Nil(alice.Session.State().PlayerState)
	s.Empty(alice.Session.State().RoomID)

	s.Eventually(func() bool {
		snap := bob.Session.State().PlayerState
		return snap != nil && snap.Phase == model.PhaseEnded
	}, testutil.WaitFor, testutil.Tick)
}
