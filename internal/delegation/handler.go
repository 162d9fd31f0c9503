package delegation

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/hr-approval/internal/auth"
	"github.com/frahmantamala/hr-approval/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, delegatorID int64, dto CreateDelegationDTO) (*Delegation, error)
	Revoke(ctx context.Context, actorID, id int64) (*Delegation, error)
	List(ctx context.Context, filter ListFilter) ([]*Delegation, error)
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

// GetDelegations handles GET /delegations?as=delegator|delegate&status=active.
// Callers only ever see delegations they are party to.
func (h *Handler) GetDelegations(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := ListFilter{Status: r.URL.Query().Get("status")}
	switch r.URL.Query().Get("as") {
	case "", "delegate":
		filter.DelegateID = &user.ID
	case "delegator":
		filter.DelegatorID = &user.ID
	default:
		h.WriteError(w, http.StatusBadRequest, "as must be delegator or delegate")
		return
	}

	list, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, DelegationsResponse{Delegations: list})
}

func (h *Handler) CreateDelegation(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateDelegationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateDelegation: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Service.Create(r.Context(), user.ID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) RevokeDelegation(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid delegation ID")
		return
	}

	d, err := h.Service.Revoke(r.Context(), user.ID, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}
