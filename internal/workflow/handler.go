package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/audit"
	"github.com/frahmantamala/hr-approval/internal/auth"
	"github.com/frahmantamala/hr-approval/internal/resource"
	"github.com/frahmantamala/hr-approval/internal/transport"
)

type EngineAPI interface {
	Submit(ctx context.Context, req SubmitRequest) (*Outcome, error)
	Act(ctx context.Context, req ActionRequest) (*Outcome, error)
	Get(ctx context.Context, id int64) (*Instance, error)
	PreviewStep(ctx context.Context, instanceID int64, order int) (*StepPreview, error)
	History(ctx context.Context, id int64, limit int) ([]*audit.Log, error)
}

type TemplateServiceAPI interface {
	Create(ctx context.Context, createdBy int64, dto CreateTemplateDTO) (*Template, error)
	Get(ctx context.Context, id int64) (*Template, error)
	List(ctx context.Context, filter TemplateFilter) ([]*Template, error)
	Deactivate(ctx context.Context, id int64) (*Template, error)
	Preview(ctx context.Context, id, locationID, creatorID int64) (*TemplatePreview, error)
}

type Handler struct {
	*transport.BaseHandler
	Engine    EngineAPI
	Templates TemplateServiceAPI
	// DefaultRouting applies to declines that do not name a routing.
	DefaultRouting map[resource.Type]DeclineRouting
}

func NewHandler(baseHandler *transport.BaseHandler, engine EngineAPI, templates TemplateServiceAPI, defaultRouting map[resource.Type]DeclineRouting) *Handler {
	return &Handler{
		BaseHandler:    baseHandler,
		Engine:         engine,
		Templates:      templates,
		DefaultRouting: defaultRouting,
	}
}

// DefaultRoutingFromConfig parses the per resource type routing table.
func DefaultRoutingFromConfig(cfg internal.WorkflowConfig) (map[resource.Type]DeclineRouting, error) {
	out := make(map[resource.Type]DeclineRouting, len(cfg.DeclineRouting))
	for key, value := range cfg.DeclineRouting {
		t, err := resource.ParseType(key)
		if err != nil {
			return nil, err
		}
		r, err := ParseDeclineRouting(value)
		if err != nil {
			return nil, err
		}
		out[t] = r
	}
	return out, nil
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateTemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateTemplate: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Templates.Create(r.Context(), user.ID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, t)
}

// GetTemplates handles GET /workflow-templates?resource_type=&location_id=&status=
func (h *Handler) GetTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter TemplateFilter
	if v := q.Get("resource_type"); v != "" {
		t, err := resource.ParseType(v)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.ResourceType = &t
	}
	if v := q.Get("location_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			h.WriteError(w, http.StatusBadRequest, "invalid location_id")
			return
		}
		filter.LocationID = &id
	}
	if v := q.Get("status"); v != "" {
		status := TemplateStatus(v)
		filter.Status = &status
	}

	list, err := h.Templates.List(r.Context(), filter)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, TemplatesResponse{Templates: list})
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid template id")
		return
	}
	t, err := h.Templates.Get(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

// PreviewTemplate handles GET /workflow-templates/{id}/preview?location_id=&creator_id=
func (h *Handler) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid template id")
		return
	}
	locationID, err := strconv.ParseInt(r.URL.Query().Get("location_id"), 10, 64)
	if err != nil || locationID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "location_id is required")
		return
	}
	var creatorID int64
	if v := r.URL.Query().Get("creator_id"); v != "" {
		if creatorID, err = strconv.ParseInt(v, 10, 64); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid creator_id")
			return
		}
	}

	preview, err := h.Templates.Preview(r.Context(), id, locationID, creatorID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, preview)
}

func (h *Handler) DeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid template id")
		return
	}
	t, err := h.Templates.Deactivate(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) SubmitInstance(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto SubmitDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("SubmitInstance: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := dto.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	out, err := h.Engine.Submit(r.Context(), SubmitRequest{
		ResourceType: resource.Type(dto.ResourceType),
		ResourceID:   dto.ResourceID,
		ActorID:      user.ID,
		SourceIP:     internal.SourceIPFromContext(r.Context()),
	})
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, out)
}

func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid instance id")
		return
	}
	inst, err := h.Engine.Get(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) ActOnInstance(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid instance id")
		return
	}

	var dto ActionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("ActOnInstance: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := dto.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	req := ActionRequest{
		InstanceID:   id,
		ActorID:      user.ID,
		Action:       Action(dto.Action),
		Comment:      dto.Comment,
		ExpectedStep: dto.ExpectedStep,
		SourceIP:     internal.SourceIPFromContext(r.Context()),
	}
	if req.Action == ActionDecline {
		routing, err := h.declineRouting(r.Context(), id, dto.Routing)
		if err != nil {
			h.WriteAppError(w, err)
			return
		}
		req.Routing = &routing
	}

	out, err := h.Engine.Act(r.Context(), req)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, out)
}

// declineRouting prefers the routing named in the request and falls back to
// the configured default for the instance's resource type. A default that
// points at a step the current one cannot go back to becomes terminate.
func (h *Handler) declineRouting(ctx context.Context, instanceID int64, requested string) (DeclineRouting, error) {
	if requested != "" {
		routing, err := ParseDeclineRouting(requested)
		if err != nil {
			return DeclineRouting{}, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidRouting)
		}
		return routing, nil
	}
	inst, err := h.Engine.Get(ctx, instanceID)
	if err != nil {
		return DeclineRouting{}, err
	}
	routing, ok := h.DefaultRouting[inst.ResourceType]
	if !ok || !defaultApplies(inst, routing) {
		return DeclineRouting{Kind: RouteTerminate}, nil
	}
	return routing, nil
}

func defaultApplies(inst *Instance, routing DeclineRouting) bool {
	if routing.Kind != RouteBackToStep {
		return true
	}
	if routing.Step >= inst.CurrentStepOrder {
		return false
	}
	target := inst.Step(routing.Step)
	return target != nil && target.Status != StepSkipped
}

func (h *Handler) GetStepApprovers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid instance id")
		return
	}
	order, err := strconv.Atoi(chi.URLParam(r, "order"))
	if err != nil || order < 1 {
		h.WriteError(w, http.StatusBadRequest, "invalid step order")
		return
	}

	preview, err := h.Engine.PreviewStep(r.Context(), id, order)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, preview)
}

func (h *Handler) GetInstanceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid instance id")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			h.WriteError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	logs, err := h.Engine.History(r.Context(), id, limit)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": logs})
}
