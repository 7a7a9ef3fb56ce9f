package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/cardroom/internal/dependencies/mocks"
	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/services/room"
	"github.com/mcoot/cardroom/internal/storage/memory"
	"github.com/mcoot/cardroom/internal/testutil"
	"github.com/mcoot/cardroom/internal/transport/wire"
)

const (
	alice model.UserID = "u-alice"
	bob   model.UserID = "u-bob"
)

type HubSuite struct {
	suite.Suite
	rooms   *room.Controller
	manager *HubManager
	server  *httptest.Server
	roomID  model.RoomID
	ctx     context.Context
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubSuite))
}

func (s *HubSuite) SetupTest() {
	s.ctx = context.Background()
	s.rooms = room.NewController(
		memory.New(),
		mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		mocks.NewMockRandom(),
	)
	s.manager = NewHubManager(s.rooms, testutil.NopLogger())

	r, err := s.rooms.Create(s.ctx, alice, model.RoomInit{MaxPlayers: 2, HandSize: 2})
	s.Require().NoError(err)
	s.roomID = r.ID

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := model.User{ID: model.UserID(r.URL.Query().Get("user"))}
		ServeWS(w, r, s.manager.GetOrCreateHub(s.roomID), user)
	}))
}

func (s *HubSuite) TearDownTest() {
	s.server.Close()
	s.manager.Close()
}

func (s *HubSuite) dial(user model.UserID) *websocket.Conn {
	u := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/?user=" + string(user)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

// next reads frames until one satisfies match
func (s *HubSuite) next(conn *websocket.Conn, match func(wire.Frame) bool) wire.Frame {
	s.T().Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.Require().NoError(conn.SetReadDeadline(deadline))
		var f wire.Frame
		s.Require().NoError(conn.ReadJSON(&f))
		if match(f) {
			return f
		}
	}
}

func isState(f wire.Frame) bool {
	return f.Type == wire.FrameState
}

func stateWith(n int) func(wire.Frame) bool {
	return func(f wire.Frame) bool {
		return f.Type == wire.FrameState && len(f.State.Players) == n
	}
}

func resultFor(requestID string) func(wire.Frame) bool {
	return func(f wire.Frame) bool {
		return f.Type == wire.FrameResult && f.RequestID == requestID
	}
}

func (s *HubSuite) send(conn *websocket.Conn, requestID string, action model.Action) wire.Frame {
	frame, err := wire.ActionFrame(requestID, action)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(frame))
	return s.next(conn, resultFor(requestID))
}

func (s *HubSuite) TestInitialSnapshotOnConnect() {
	conn := s.dial(alice)

	f := s.next(conn, isState)
	s.Equal(s.roomID, f.State.RoomID)
	s.Equal(model.PhaseLobby, f.State.Phase)
	s.Equal(int64(1), f.State.Seq)
}

func (s *HubSuite) TestActionBroadcastsToAllClients() {
	a := s.dial(alice)
	b := s.dial(bob)
	s.next(a, isState)
	s.next(b, isState)

	res := s.send(a, "r1", model.Action{Name: model.ActionJoin})
	s.True(res.OK)

	f := s.next(b, stateWith(1))
	s.Equal(alice, f.State.Players[0].ID)
	s.Equal(int64(2), f.State.Seq)
}

func (s *HubSuite) TestSnapshotsArePerViewer() {
	a := s.dial(alice)
	b := s.dial(bob)

	s.True(s.send(a, "r1", model.Action{Name: model.ActionJoin}).OK)
	s.True(s.send(b, "r2", model.Action{Name: model.ActionJoin}).OK)
	s.True(s.send(a, "r3", model.Action{Name: model.ActionStartGame}).OK)

	playing := func(f wire.Frame) bool {
		return f.Type == wire.FrameState && f.State.Phase == model.PhasePlaying
	}
	fa := s.next(a, playing)
	fb := s.next(b, playing)

	s.Equal([]model.Card{{Suit: "S", Rank: "A"}, {Suit: "S", Rank: "2"}}, fa.State.Hand)
	s.Equal([]model.Card{{Suit: "S", Rank: "3"}, {Suit: "S", Rank: "4"}}, fb.State.Hand)
	s.Equal(alice, fa.State.CurrentTurn)
}

func (s *HubSuite) TestRejectedActionReportsFailure() {
	a := s.dial(alice)

	res := s.send(a, "r1", model.Action{Name: model.ActionStartGame})
	s.False(res.OK)
	s.Equal("Not in this room", res.Message)
}

func (s *HubSuite) TestUnknownActionReportsFailure() {
	a := s.dial(alice)

	res := s.send(a, "r1", model.Action{Name: "fold"})
	s.False(res.OK)
	s.Contains(res.Message, "fold")
}

func (s *HubSuite) TestNonActionFrameReportsFailure() {
	a := s.dial(alice)

	s.Require().NoError(a.WriteJSON(wire.Frame{Type: wire.FrameState, RequestID: "r1"}))
	res := s.next(a, resultFor("r1"))
	s.False(res.OK)
}

func (s *HubSuite) TestHubCloseDisconnectsClients() {
	a := s.dial(alice)
	s.next(a, isState)

	s.manager.Close()

	s.Require().NoError(a.SetReadDeadline(time.Now().Add(2 * time.Second)))
	for {
		var f wire.Frame
		if err := a.ReadJSON(&f); err != nil {
			s.True(websocket.IsCloseError(err, websocket.CloseNormalClosure))
			return
		}
	}
}

func (s *HubSuite) TestClientCount() {
	hub := s.manager.GetOrCreateHub(s.roomID)
	a := s.dial(alice)
	s.next(a, isState)
	s.Equal(1, hub.ClientCount())

	s.Require().NoError(a.Close())
	s.Eventually(func() bool { return hub.ClientCount() == 0 }, testutil.WaitFor, testutil.Tick)
}

func (s *HubSuite) TestGetOrCreateHubReusesHub() {
	h1 := s.manager.GetOrCreateHub("ROOM01")
	h2 := s.manager.GetOrCreateHub("ROOM01")
	s.Same(h1, h2)
	s.Same(h1, s.manager.GetHub("ROOM01"))
}

func (s *HubSuite) TestCleanupEmptyHubs() {
	s.manager.GetOrCreateHub("ROOM01")
	s.manager.CleanupEmptyHubs(0)
	s.Nil(s.manager.GetHub("ROOM01"))
}

func (s *HubSuite) TestCleanupKeepsHubAwaitingFirstClient() {
	hub := s.manager.GetOrCreateHub(s.roomID)
	s.manager.CleanupEmptyHubs(time.Minute)
	s.Same(hub, s.manager.GetHub(s.roomID))

	conn := s.dial(alice)
	s.next(conn, isState)
	s.Equal(1, hub.ClientCount())
}

func (s *HubSuite) TestCleanupKeepsHubWithClients() {
	conn := s.dial(alice)
	s.next(conn, isState)
	hub := s.manager.GetHub(s.roomID)
	s.Require().NotNil(hub)

	s.manager.CleanupEmptyHubs(0)
	s.Same(hub, s.manager.GetHub(s.roomID))
}

func (s *HubSuite) TestCleanupRemovesHubLeftEmpty() {
	conn := s.dial(alice)
	s.next(conn, isState)
	hub := s.manager.GetHub(s.roomID)
	s.Require().NotNil(hub)

	s.Require().NoError(conn.Close())
	s.Eventually(func() bool { return hub.ClientCount() == 0 }, testutil.WaitFor, testutil.Tick)

	s.manager.CleanupEmptyHubs(time.Minute)
	s.NotNil(s.manager.GetHub(s.roomID))

	s.manager.CleanupEmptyHubs(0)
	s.Nil(s.manager.GetHub(s.roomID))
}

func (s *HubSuite) TestRefreshCoalesces() {
	hub := NewHub(s.roomID, s.rooms, testutil.NopLogger())
	hub.Refresh()
	hub.Refresh()
	s.Len(hub.refresh, 1)
}
