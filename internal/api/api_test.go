package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/cardroom/internal/api"
	"github.com/mcoot/cardroom/internal/api/apierr"
	"github.com/mcoot/cardroom/internal/api/response"
	"github.com/mcoot/cardroom/internal/factory"
	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/testutil"
)

// testServer wraps the router and the mocked dependencies behind it
type testServer struct {
	handler http.Handler
	app     *factory.TestServer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestServer()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		AuthService:    app.AuthService,
		RoomController: app.RoomController,
		HubManager:     app.HubManager,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func createSession(t *testing.T, ts *testServer) string {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/v1/sessions/anonymous", nil, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp response.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func createRoom(t *testing.T, ts *testServer, token string, body any) string {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/v1/rooms", body, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp response.RoomResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.RoomID
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestCreateAnonymousSession(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("WXYZ")

	token := createSession(t, ts)

	rr := ts.request(http.MethodGet, "/api/v1/users/me", nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	var me response.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "Guest-WXYZ", me.DisplayName)
	assert.NotEmpty(t, me.ID)
}

func TestGetUserIsPublic(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("ABCD")
	token := createSession(t, ts)

	rr := ts.request(http.MethodGet, "/api/v1/users/me", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var me response.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))

	rr = ts.request(http.MethodGet, "/api/v1/users/"+me.ID, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var got response.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, me, got)
}

func TestGetUserNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/users/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeUserNotFound, errorCode(t, rr))
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/rooms", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/rooms", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeUnauthorized, errorCode(t, rr))
}

func TestCreateRoomWithDefaults(t *testing.T) {
	ts := newTestServer(t)
	token := createSession(t, ts)
	ts.app.MockRandom.QueueString("ROOM01")

	roomID := createRoom(t, ts, token, nil)
	assert.Equal(t, "ROOM01", roomID)

	r, err := ts.app.RoomController.Get(t.Context(), model.RoomID(roomID))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultRoomInit(), r.Init)
	assert.Equal(t, model.PhaseLobby, r.Phase)
}

func TestCreateRoomWithSettings(t *testing.T) {
	ts := newTestServer(t)
	token := createSession(t, ts)

	roomID := createRoom(t, ts, token, map[string]int{"max_players": 2, "hand_size": 5})

	r, err := ts.app.RoomController.Get(t.Context(), model.RoomID(roomID))
	require.NoError(t, err)
	assert.Equal(t, model.RoomInit{MaxPlayers: 2, HandSize: 5}, r.Init)
}

func TestCreateRoomInvalidSettings(t *testing.T) {
	ts := newTestServer(t)
	token := createSession(t, ts)

	rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]int{"max_players": 20}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRoomInit, errorCode(t, rr))
}

func TestCreateRoomInvalidBody(t *testing.T) {
	ts := newTestServer(t)
	token := createSession(t, ts)

	rr := ts.request(http.MethodPost, "/api/v1/rooms", "not an object", token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestGetRoomSnapshot(t *testing.T) {
	ts := newTestServer(t)
	token := createSession(t, ts)
	roomID := createRoom(t, ts, token, nil)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/"+roomID, nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	var snap model.StateSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, model.RoomID(roomID), snap.RoomID)
	assert.Equal(t, int64(1), snap.Seq)
	assert.Empty(t, snap.Players)
}

func TestRoomNotFound(t *testing.T) {
	ts := newTestServer(t)
	token := createSession(t, ts)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/NOPE00", nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeRoomNotFound, errorCode(t, rr))

	// Unknown rooms are refused before the websocket upgrade
	rr = ts.request(http.MethodGet, "/api/v1/rooms/NOPE00/ws", nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeRoomNotFound, errorCode(t, rr))
}

func TestWebsocketRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/ROOM01/ws", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
