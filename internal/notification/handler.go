package notification

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/hr-approval/internal/auth"
	"github.com/frahmantamala/hr-approval/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{BaseHandler: baseHandler, Service: service}
}

// GetNotifications handles GET /notifications?unread=true&limit=20
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	list, err := h.Service.List(r.Context(), user.ID, r.URL.Query().Get("unread") == "true", limit)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, NotificationsResponse{Notifications: list})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid notification ID")
		return
	}
	if err := h.Service.MarkRead(r.Context(), user.ID, id); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
