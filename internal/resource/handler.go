package resource

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/hr-approval/internal/auth"
	"github.com/frahmantamala/hr-approval/internal/transport"
)

type ServiceAPI interface {
	CreateLeaveRequest(ctx context.Context, ownerID int64, dto CreateLeaveRequestDTO) (*Record, error)
	CreateTimesheet(ctx context.Context, ownerID int64, dto CreateTimesheetDTO) (*Record, error)
	Get(ctx context.Context, resourceType Type, id int64) (*Record, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{BaseHandler: baseHandler, Service: service}
}

func (h *Handler) CreateLeaveRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var dto CreateLeaveRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := h.Service.CreateLeaveRequest(r.Context(), user.ID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) CreateTimesheet(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var dto CreateTimesheetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := h.Service.CreateTimesheet(r.Context(), user.ID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) GetLeaveRequest(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, TypeLeave)
}

func (h *Handler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, TypeTimesheet)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, resourceType Type) {
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid resource ID")
		return
	}
	rec, err := h.Service.Get(r.Context(), resourceType, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rec)
}
