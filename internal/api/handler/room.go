package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/cardroom/internal/api/apierr"
	"github.com/mcoot/cardroom/internal/api/middleware"
	"github.com/mcoot/cardroom/internal/api/realtime"
	"github.com/mcoot/cardroom/internal/api/request"
	"github.com/mcoot/cardroom/internal/api/response"
	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/services/room"
)

// RoomHandler handles room endpoints
type RoomHandler struct {
	roomController *room.Controller
	hubManager     *realtime.HubManager
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomController *room.Controller, hubManager *realtime.HubManager) *RoomHandler {
	return &RoomHandler{
		roomController: roomController,
		hubManager:     hubManager,
	}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	var req request.CreateRoomRequest
	if err := request.DecodeOptional(r, &req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	created, err := h.roomController.Create(r.Context(), user.ID, req.RoomInit())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Created(w, response.RoomResponse{RoomID: string(created.ID)})
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	id := model.RoomID(mux.Vars(r)["id"])

	snap, err := h.roomController.Snapshot(r.Context(), id, user.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, snap)
}

// Connect handles GET /api/v1/rooms/{id}/ws and upgrades to a live connection.
// Unknown rooms are refused before the upgrade.
func (h *RoomHandler) Connect(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	id := model.RoomID(mux.Vars(r)["id"])

	if _, err := h.roomController.Get(r.Context(), id); err != nil {
		apierr.WriteError(w, err)
		return
	}

	realtime.ServeWS(w, r, h.hubManager.GetOrCreateHub(id), user)
}
