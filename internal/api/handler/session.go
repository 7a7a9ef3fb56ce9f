package handler

import (
	"net/http"

	"github.com/mcoot/cardroom/internal/api/apierr"
	"github.com/mcoot/cardroom/internal/api/response"
	"github.com/mcoot/cardroom/internal/services/auth"
)

// SessionHandler handles session endpoints
type SessionHandler struct {
	authService *auth.Service
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(authService *auth.Service) *SessionHandler {
	return &SessionHandler{
		authService: authService,
	}
}

// CreateAnonymous handles POST /api/v1/sessions/anonymous
func (h *SessionHandler) CreateAnonymous(w http.ResponseWriter, r *http.Request) {
	token, _, err := h.authService.CreateGuest(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Created(w, response.TokenResponse{Token: string(token)})
}
