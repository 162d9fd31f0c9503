package authority

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/core/common/validation"
	"github.com/frahmantamala/hr-approval/internal/transport"
)

type Checker interface {
	CheckAuthority(ctx context.Context, userID int64, permission string, locationID *int64, wc *WorkflowContext) (Decision, error)
}

// CheckRequest asks for a decision on behalf of UserID, or the caller when it
// is zero. InstanceID and StepOrder must be given together.
type CheckRequest struct {
	UserID     int64  `json:"user_id,omitempty"`
	Permission string `json:"permission"`
	LocationID *int64 `json:"location_id,omitempty"`
	InstanceID *int64 `json:"instance_id,omitempty"`
	StepOrder  *int   `json:"step_order,omitempty"`
}

func (r CheckRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("permission", r.Permission).Required()
	if (r.InstanceID == nil) != (r.StepOrder == nil) {
		return internal.NewValidationFieldError("step_order", "instance_id and step_order must be given together", internal.ErrCodeValidationFailed)
	}
	if r.StepOrder != nil {
		v.Field("step_order", *r.StepOrder).MinInt(1, internal.ErrCodeValidationFailed)
	}
	return v.Validate()
}

func (r CheckRequest) workflowContext() *WorkflowContext {
	if r.InstanceID == nil {
		return nil
	}
	return &WorkflowContext{InstanceID: *r.InstanceID, StepOrder: *r.StepOrder}
}

type Handler struct {
	*transport.BaseHandler
	Checker Checker
}

func NewHandler(baseHandler *transport.BaseHandler, checker Checker) *Handler {
	return &Handler{BaseHandler: baseHandler, Checker: checker}
}

// Check handles POST /authority/check. A denial is a normal 200 response;
// only malformed requests and store failures are errors.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := req.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if req.UserID == 0 {
		callerID := internal.UserIDFromContext(r.Context())
		if callerID == 0 {
			h.WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		req.UserID = callerID
	}

	decision, err := h.Checker.CheckAuthority(r.Context(), req.UserID, req.Permission, req.LocationID, req.workflowContext())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, decision)
}
