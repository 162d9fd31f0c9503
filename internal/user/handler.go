package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/hr-approval/internal/auth"
	"github.com/frahmantamala/hr-approval/internal/transport"
)

// PermViewProfile names the check reported when a profile view is refused.
const PermViewProfile = "user.view_profile"

type ServiceAPI interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetVisibleTo(ctx context.Context, viewerID, userID int64) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me and includes the caller's active roles.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.Service.GetByID(r.Context(), caller.ID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// GetUser handles GET /users/{id}. Managers can look up their direct reports.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	u, err := h.Service.GetVisibleTo(r.Context(), caller.ID, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}
