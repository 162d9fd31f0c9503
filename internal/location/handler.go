package location

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/hr-approval/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, activeOnly bool) ([]*Location, error)
	GetByID(ctx context.Context, id int64) (*Location, error)
	Create(ctx context.Context, dto CreateLocationDTO) (*Location, error)
	Deactivate(ctx context.Context, id int64) (*Location, error)
	Move(ctx context.Context, id int64, dto MoveLocationDTO) (*Location, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetLocations handles GET /locations?active=true
func (h *Handler) GetLocations(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	locs, err := h.Service.List(r.Context(), activeOnly)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, LocationsResponse{Locations: locs})
}

func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid location ID")
		return
	}
	loc, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, loc)
}

func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var dto CreateLocationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	loc, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, loc)
}

func (h *Handler) DeactivateLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid location ID")
		return
	}
	loc, err := h.Service.Deactivate(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, loc)
}

func (h *Handler) MoveLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid location ID")
		return
	}
	var dto MoveLocationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	loc, err := h.Service.Move(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, loc)
}
