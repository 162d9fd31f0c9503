package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/approver"
	"github.com/frahmantamala/hr-approval/internal/audit"
	"github.com/frahmantamala/hr-approval/internal/authority"
	"github.com/frahmantamala/hr-approval/internal/core/events"
	"github.com/frahmantamala/hr-approval/internal/notification"
	"github.com/frahmantamala/hr-approval/internal/resource"
	"github.com/frahmantamala/hr-approval/pkg/keylock"
)

const auditResourceType = "workflow_instance"

type Authorizer interface {
	CheckAuthority(ctx context.Context, userID int64, permission string, locationID *int64, wc *authority.WorkflowContext) (authority.Decision, error)
}

type ApproverResolver interface {
	Resolve(ctx context.Context, subj approver.Subject, cfg approver.StepConfig) ([]int64, error)
}

// Ancestry returns the ancestors of a location, root first.
type Ancestry interface {
	AncestorsOf(ctx context.Context, id int64) ([]int64, error)
}

type Dependencies struct {
	Templates TemplateRepository
	Instances InstanceRepository
	Resources resource.Loader
	Locations Ancestry
	Authority Authorizer
	Approvers ApproverResolver
	History   audit.Reader
	Locks     *keylock.Locker
	Publisher events.Publisher
}

// Engine drives workflow instances. Every transition runs under a
// per-instance lock and commits its instance, audit, notification and
// resource status writes in one transaction.
type Engine struct {
	templates TemplateRepository
	instances InstanceRepository
	resources resource.Loader
	locations Ancestry
	authz     Authorizer
	approvers ApproverResolver
	history   audit.Reader
	locks     *keylock.Locker
	publisher events.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

func NewEngine(deps Dependencies, logger *slog.Logger) *Engine {
	locks := deps.Locks
	if locks == nil {
		locks = keylock.New()
	}
	return &Engine{
		templates: deps.Templates,
		instances: deps.Instances,
		resources: deps.Resources,
		locations: deps.Locations,
		authz:     deps.Authority,
		approvers: deps.Approvers,
		history:   deps.History,
		locks:     locks,
		publisher: deps.Publisher,
		now:       time.Now,
		logger:    logger,
	}
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

type SubmitRequest struct {
	ResourceType resource.Type
	ResourceID   int64
	ActorID      int64
	SourceIP     string
}

type ActionRequest struct {
	InstanceID int64
	ActorID    int64
	Action     Action
	Comment    string
	// Routing is required for decline and ignored otherwise.
	Routing *DeclineRouting
	// ExpectedStep, when set, must equal the current step order.
	ExpectedStep *int
	SourceIP     string
}

// Outcome is the instance after a transition and who is now expected to act.
type Outcome struct {
	Instance      *Instance `json:"instance"`
	NextApprovers []int64   `json:"next_approvers"`
}

// Stalled reports an open instance whose current step has no eligible approver.
func (o *Outcome) Stalled() bool {
	return o.Instance.IsOpen() && len(o.NextApprovers) == 0
}

type StepPreview struct {
	InstanceID      int64      `json:"instance_id"`
	StepOrder       int        `json:"step_order"`
	Status          StepStatus `json:"status"`
	Current         bool       `json:"current"`
	Approvers       []int64    `json:"approvers"`
	ResolutionEmpty bool       `json:"resolution_empty"`
}

func instanceKey(id int64) string {
	return fmt.Sprintf("instance:%d", id)
}

func resourceKey(t resource.Type, id int64) string {
	return fmt.Sprintf("resource:%s:%d", t, id)
}

func (e *Engine) Get(ctx context.Context, id int64) (*Instance, error) {
	inst, err := e.instances.Get(ctx, id)
	if err != nil {
		e.logger.Error("failed to load workflow instance", "instance_id", id, "error", err)
		return nil, err
	}
	if inst == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("workflow instance %d not found", id), errors.ErrCodeInstanceNotFound)
	}
	return inst, nil
}

// History lists the audit trail of an instance, newest first.
func (e *Engine) History(ctx context.Context, id int64, limit int) ([]*audit.Log, error) {
	if _, err := e.Get(ctx, id); err != nil {
		return nil, err
	}
	return e.history.List(ctx, audit.Filter{ResourceType: auditResourceType, ResourceID: id, Limit: limit})
}

// SelectTemplate walks from locationID up to the root and returns the first
// location's best matching active template. Narrower filters win, then the
// highest version.
func (e *Engine) SelectTemplate(ctx context.Context, resourceType resource.Type, locationID int64, attrs map[string]interface{}) (*Template, error) {
	ancestors, err := e.locations.AncestorsOf(ctx, locationID)
	if err != nil {
		return nil, err
	}
	chain := make([]int64, 0, len(ancestors)+1)
	chain = append(chain, locationID)
	for i := len(ancestors) - 1; i >= 0; i-- {
		chain = append(chain, ancestors[i])
	}

	candidates, err := e.templates.ActiveFor(ctx, resourceType, chain)
	if err != nil {
		return nil, fmt.Errorf("load active templates: %w", err)
	}

	for _, locID := range chain {
		var best *Template
		for _, t := range candidates {
			if t.LocationID != locID || !t.Applies(attrs) {
				continue
			}
			if best == nil ||
				t.Specificity() > best.Specificity() ||
				(t.Specificity() == best.Specificity() && t.Version > best.Version) {
				best = t
			}
		}
		if best != nil {
			return best, nil
		}
	}
	return nil, errors.NewNotFoundError(
		fmt.Sprintf("no active %s template applies at location %d", resourceType, locationID),
		errors.ErrCodeTemplateNotFound)
}

// Submit starts a workflow for a draft resource owned by the actor.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*Outcome, error) {
	unlock, err := e.locks.Lock(ctx, resourceKey(req.ResourceType, req.ResourceID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := e.resources.Load(ctx, req.ResourceType, req.ResourceID)
	if err != nil {
		e.logger.Error("failed to load resource", "resource_type", req.ResourceType, "resource_id", req.ResourceID, "error", err)
		return nil, err
	}
	if res == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("%s %d not found", req.ResourceType, req.ResourceID), errors.ErrCodeResourceNotFound)
	}
	if res.OwnerID != req.ActorID {
		return nil, errors.NewForbiddenError("only the owner can submit a resource", errors.ErrCodeAuthorizationDenied)
	}
	if res.Status != resource.StatusDraft {
		return nil, errors.NewStateConflict(fmt.Sprintf("%s %d is %s, not draft", res.Type, res.ID, res.Status))
	}

	open, err := e.instances.FindOpen(ctx, res.Type, res.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, errors.NewStateConflict(fmt.Sprintf("%s %d already has open workflow %d", res.Type, res.ID, open.ID))
	}

	tmpl, err := e.SelectTemplate(ctx, res.Type, res.LocationID, res.Attributes)
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		TemplateID:      tmpl.ID,
		TemplateVersion: tmpl.Version,
		ResourceType:    res.Type,
		ResourceID:      res.ID,
		LocationID:      res.LocationID,
		CreatorID:       res.OwnerID,
		Status:          StatusUnderReview,
	}
	for _, s := range tmpl.Steps {
		status := StepPending
		if !s.Conditions.Evaluate(res.Attributes) {
			status = StepSkipped
		}
		inst.Steps = append(inst.Steps, &StepInstance{StepOrder: s.Order, Attempt: 1, Status: status, Config: s})
	}
	first, ok := inst.NextActiveOrder(0)
	if !ok {
		return nil, errors.NewValidationError(
			fmt.Sprintf("no step of template %d applies to %s %d", tmpl.ID, res.Type, res.ID),
			errors.ErrCodeNoApplicableStep)
	}
	inst.CurrentStepOrder = first

	approvers, err := e.resolveStep(ctx, inst, first)
	if err != nil {
		return nil, err
	}

	err = e.instances.WithinTx(ctx, func(uow UnitOfWork) error {
		existing, err := uow.Instances().FindOpen(ctx, res.Type, res.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errors.NewStateConflict(fmt.Sprintf("%s %d already has open workflow %d", res.Type, res.ID, existing.ID))
		}
		if err := uow.Instances().Create(ctx, inst); err != nil {
			return err
		}
		if err := uow.Resources().SetResourceStatus(ctx, res.Type, res.ID, resource.StatusUnderReview); err != nil {
			return err
		}
		if err := uow.Audit().Record(ctx, audit.Entry{
			ActorID:      req.ActorID,
			Action:       events.EventTypeWorkflowSubmitted,
			ResourceType: auditResourceType,
			ResourceID:   inst.ID,
			Before:       Snapshot{Status: StatusDraft},
			After:        inst.Snapshot(),
			Context:      map[string]interface{}{"template_id": tmpl.ID, "template_version": tmpl.Version, "resource_type": res.Type, "resource_id": res.ID},
			SourceIP:     req.SourceIP,
		}); err != nil {
			return err
		}
		return notifyAll(ctx, uow.Notifier(), approvers, message(notification.KindApprovalRequested, inst, first))
	})
	if err != nil {
		if _, ok := errors.IsAppError(err); !ok {
			e.logger.Error("failed to submit workflow", "resource_type", res.Type, "resource_id", res.ID, "error", err)
		}
		return nil, err
	}

	e.logger.Info("workflow submitted",
		"instance_id", inst.ID,
		"template_id", tmpl.ID,
		"resource_type", res.Type,
		"resource_id", res.ID,
		"current_step_order", first)
	e.warnIfStalled(inst, approvers)
	e.publish(ctx, events.EventTypeWorkflowSubmitted, inst, req.ActorID, first, approvers)

	return &Outcome{Instance: inst, NextApprovers: approvers}, nil
}

// transition is what an action does to an instance, decided before any write.
type transition struct {
	eventType      string
	stepStatus     StepStatus
	instanceStatus Status
	nextOrder      int
	reopen         []int
	resourceStatus resource.Status
	terminal       bool
	notifyKind     string
	notifyOwner    bool
	routing        *DeclineRouting
}

// Act applies an approver's action to the current step of an instance.
func (e *Engine) Act(ctx context.Context, req ActionRequest) (*Outcome, error) {
	unlock, err := e.locks.Lock(ctx, instanceKey(req.InstanceID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	inst, err := e.Get(ctx, req.InstanceID)
	if err != nil {
		return nil, err
	}
	step, err := actionable(inst, req.ExpectedStep)
	if err != nil {
		return nil, err
	}

	decision, err := e.authz.CheckAuthority(ctx, req.ActorID, step.Config.RequiredPermission, &inst.LocationID,
		&authority.WorkflowContext{InstanceID: inst.ID, StepOrder: step.StepOrder})
	if err != nil {
		e.logger.Error("authority check failed", "instance_id", inst.ID, "actor_id", req.ActorID, "error", err)
		return nil, err
	}
	if !decision.Authorized {
		e.logger.Info("workflow action denied",
			"instance_id", inst.ID,
			"actor_id", req.ActorID,
			"step_order", step.StepOrder,
			"reason", decision.Reason)
		return nil, errors.NewAuthorizationDenied(step.Config.RequiredPermission, string(decision.Reason))
	}

	t, err := plan(inst, step, req)
	if err != nil {
		return nil, err
	}

	recipients := []int64{inst.CreatorID}
	if !t.terminal {
		if recipients, err = e.resolveStep(ctx, inst, t.nextOrder); err != nil {
			return nil, err
		}
	}

	now := e.now()
	var result *Instance
	err = e.instances.WithinInstance(ctx, inst.ID, func(uow UnitOfWork, locked *Instance) error {
		cur := locked.CurrentStep()
		if !locked.IsOpen() || locked.CurrentStepOrder != inst.CurrentStepOrder ||
			cur == nil || cur.ID != step.ID || cur.Status != StepPending {
			return errors.NewStateConflict(fmt.Sprintf("step %d of workflow %d was changed concurrently", step.StepOrder, inst.ID))
		}
		before := locked.Snapshot()

		actor := req.ActorID
		cur.Status = t.stepStatus
		cur.ActorID = &actor
		cur.OnBehalfOf = decision.DelegatorID
		cur.DelegationID = decision.DelegationID
		cur.ActedAt = &now
		cur.Comment = req.Comment
		if err := uow.Instances().CompleteStep(ctx, cur); err != nil {
			return err
		}

		if len(t.reopen) > 0 {
			reopened := make([]*StepInstance, 0, len(t.reopen))
			for _, order := range t.reopen {
				prev := locked.Step(order)
				reopened = append(reopened, &StepInstance{
					InstanceID: locked.ID,
					StepOrder:  order,
					Attempt:    prev.Attempt + 1,
					Status:     StepPending,
					Config:     prev.Config,
				})
			}
			if err := uow.Instances().AppendSteps(ctx, reopened); err != nil {
				return err
			}
			locked.Steps = append(locked.Steps, reopened...)
		}

		locked.Status = t.instanceStatus
		if !t.terminal {
			locked.CurrentStepOrder = t.nextOrder
		} else {
			locked.CompletedAt = &now
		}
		if err := uow.Instances().UpdateState(ctx, locked); err != nil {
			return err
		}

		if t.resourceStatus != "" {
			if err := uow.Resources().SetResourceStatus(ctx, locked.ResourceType, locked.ResourceID, t.resourceStatus); err != nil {
				return err
			}
		}

		auditCtx := map[string]interface{}{
			"step_order": step.StepOrder,
			"attempt":    cur.Attempt,
			"action":     req.Action,
			"reason":     decision.Reason,
		}
		if t.routing != nil {
			auditCtx["routing"] = t.routing.String()
		}
		if decision.DelegationID != nil {
			auditCtx["delegation_id"] = *decision.DelegationID
			auditCtx["on_behalf_of"] = *decision.DelegatorID
		}
		if req.Comment != "" {
			auditCtx["comment"] = req.Comment
		}
		if err := uow.Audit().Record(ctx, audit.Entry{
			ActorID:      req.ActorID,
			Action:       t.eventType,
			ResourceType: auditResourceType,
			ResourceID:   locked.ID,
			Before:       before,
			After:        locked.Snapshot(),
			Context:      auditCtx,
			SourceIP:     req.SourceIP,
		}); err != nil {
			return err
		}

		if err := notifyAll(ctx, uow.Notifier(), recipients, message(t.notifyKind, locked, t.nextOrder)); err != nil {
			return err
		}
		if t.notifyOwner {
			note := declinedBackMessage(locked, step.StepOrder, t.nextOrder)
			if err := notifyAll(ctx, uow.Notifier(), []int64{locked.CreatorID}, note); err != nil {
				return err
			}
		}
		result = locked
		return nil
	})
	if err != nil {
		if _, ok := errors.IsAppError(err); !ok {
			e.logger.Error("failed to apply workflow action",
				"instance_id", inst.ID, "action", req.Action, "actor_id", req.ActorID, "error", err)
		}
		return nil, err
	}

	e.logger.Info("workflow transition committed",
		"instance_id", result.ID,
		"action", req.Action,
		"actor_id", req.ActorID,
		"step_order", step.StepOrder,
		"status", result.Status,
		"current_step_order", result.CurrentStepOrder)
	delivered := recipients
	if t.notifyOwner && !containsID(recipients, result.CreatorID) {
		delivered = append(append([]int64{}, recipients...), result.CreatorID)
	}
	e.publish(ctx, t.eventType, result, req.ActorID, step.StepOrder, delivered)

	out := &Outcome{Instance: result}
	if !t.terminal {
		out.NextApprovers = recipients
		e.warnIfStalled(result, recipients)
	}
	return out, nil
}

// actionable returns the current step when the instance accepts actions on it.
func actionable(inst *Instance, expected *int) (*StepInstance, error) {
	if !inst.IsOpen() {
		return nil, errors.NewStateConflict(fmt.Sprintf("workflow %d is %s", inst.ID, inst.Status))
	}
	if expected != nil && *expected != inst.CurrentStepOrder {
		return nil, errors.NewStateConflict(fmt.Sprintf("step %d of workflow %d is not current", *expected, inst.ID))
	}
	step := inst.CurrentStep()
	if step == nil {
		return nil, errors.NewStateConflict(fmt.Sprintf("workflow %d has no step %d", inst.ID, inst.CurrentStepOrder))
	}
	if step.Status != StepPending {
		return nil, errors.NewStateConflict(fmt.Sprintf("step %d of workflow %d is %s", step.StepOrder, inst.ID, step.Status))
	}
	return step, nil
}

func plan(inst *Instance, step *StepInstance, req ActionRequest) (transition, error) {
	cfg := step.Config
	switch req.Action {
	case ActionApprove:
		if next, ok := inst.NextActiveOrder(step.StepOrder); ok {
			return transition{
				eventType:      events.EventTypeWorkflowStepApproved,
				stepStatus:     StepApproved,
				instanceStatus: StatusUnderReview,
				nextOrder:      next,
				notifyKind:     notification.KindApprovalRequested,
			}, nil
		}
		return transition{
			eventType:      events.EventTypeWorkflowApproved,
			stepStatus:     StepApproved,
			instanceStatus: StatusApproved,
			resourceStatus: resource.StatusApproved,
			terminal:       true,
			notifyKind:     notification.KindApproved,
		}, nil

	case ActionDecline:
		if !cfg.AllowDecline {
			return transition{}, errors.NewForbiddenError(
				fmt.Sprintf("step %d does not allow decline", step.StepOrder), errors.ErrCodeActionNotAllowed)
		}
		if req.Routing == nil {
			return transition{}, errors.NewValidationError("decline requires a routing", errors.ErrCodeInvalidRouting)
		}
		return planDecline(inst, step, *req.Routing)

	case ActionAdjust:
		if !cfg.AllowAdjust {
			return transition{}, errors.NewForbiddenError(
				fmt.Sprintf("step %d does not allow adjust", step.StepOrder), errors.ErrCodeActionNotAllowed)
		}
		return transition{
			eventType:      events.EventTypeWorkflowReturned,
			stepStatus:     StepReturned,
			instanceStatus: StatusDraft,
			resourceStatus: resource.StatusDraft,
			terminal:       true,
			notifyKind:     notification.KindReturned,
		}, nil
	}
	return transition{}, errors.NewValidationError(fmt.Sprintf("unknown action %q", req.Action), errors.ErrCodeValidationFailed)
}

func planDecline(inst *Instance, step *StepInstance, routing DeclineRouting) (transition, error) {
	switch routing.Kind {
	case RouteTerminate:
		return transition{
			eventType:      events.EventTypeWorkflowDeclined,
			stepStatus:     StepDeclined,
			instanceStatus: StatusDeclined,
			resourceStatus: resource.StatusDeclined,
			terminal:       true,
			notifyKind:     notification.KindDeclined,
			routing:        &routing,
		}, nil

	case RouteBackToOwner:
		return transition{
			eventType:      events.EventTypeWorkflowReturned,
			stepStatus:     StepDeclined,
			instanceStatus: StatusDraft,
			resourceStatus: resource.StatusDraft,
			terminal:       true,
			notifyKind:     notification.KindDeclined,
			routing:        &routing,
		}, nil

	case RouteBackToStep:
		target := routing.Step
		if target < 1 || target >= step.StepOrder {
			return transition{}, errors.NewValidationError(
				fmt.Sprintf("cannot route step %d back to step %d", step.StepOrder, target), errors.ErrCodeInvalidRouting)
		}
		if s := inst.Step(target); s == nil || s.Status == StepSkipped {
			return transition{}, errors.NewValidationError(
				fmt.Sprintf("step %d is not part of workflow %d", target, inst.ID), errors.ErrCodeInvalidRouting)
		}
		var reopen []int
		for _, order := range inst.Orders() {
			if order < target || order > step.StepOrder {
				continue
			}
			if inst.Step(order).Status != StepSkipped {
				reopen = append(reopen, order)
			}
		}
		return transition{
			eventType:      events.EventTypeWorkflowRouted,
			stepStatus:     StepDeclined,
			instanceStatus: StatusUnderReview,
			nextOrder:      target,
			reopen:         reopen,
			notifyKind:     notification.KindRoutedBack,
			notifyOwner:    true,
			routing:        &routing,
		}, nil
	}
	return transition{}, errors.NewValidationError(fmt.Sprintf("unknown decline routing %q", routing.Kind), errors.ErrCodeInvalidRouting)
}

// PreviewStep resolves the approvers of one step without changing anything.
func (e *Engine) PreviewStep(ctx context.Context, instanceID int64, order int) (*StepPreview, error) {
	inst, err := e.Get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	step := inst.Step(order)
	if step == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("workflow %d has no step %d", instanceID, order), errors.ErrCodeInstanceNotFound)
	}
	approvers, err := e.resolveStep(ctx, inst, order)
	if err != nil {
		return nil, err
	}
	return &StepPreview{
		InstanceID:      inst.ID,
		StepOrder:       order,
		Status:          step.Status,
		Current:         inst.IsOpen() && inst.CurrentStepOrder == order,
		Approvers:       approvers,
		ResolutionEmpty: len(approvers) == 0,
	}, nil
}

func (e *Engine) resolveStep(ctx context.Context, inst *Instance, order int) ([]int64, error) {
	return resolveApprovers(ctx, e.approvers, inst, order)
}

func resolveApprovers(ctx context.Context, resolver ApproverResolver, inst *Instance, order int) ([]int64, error) {
	step := inst.Step(order)
	if step == nil || step.Config == nil {
		return nil, fmt.Errorf("workflow %d has no step %d", inst.ID, order)
	}
	locationID := inst.LocationID
	return resolver.Resolve(ctx, approver.Subject{
		InstanceID: inst.ID,
		StepOrder:  order,
		CreatorID:  inst.CreatorID,
		LocationID: &locationID,
	}, step.Config.ApproverConfig())
}

func (e *Engine) warnIfStalled(inst *Instance, approvers []int64) {
	if len(approvers) == 0 {
		e.logger.Warn("workflow step has no eligible approver",
			"instance_id", inst.ID,
			"step_order", inst.CurrentStepOrder,
			"code", errors.ErrCodeResolutionEmpty)
	}
}

func (e *Engine) publish(ctx context.Context, eventType string, inst *Instance, actorID int64, order int, recipients []int64) {
	if e.publisher == nil {
		return
	}
	ev := events.NewWorkflowTransitionEvent(eventType, inst.ID, string(inst.ResourceType), inst.ResourceID, actorID, order, string(inst.Status), recipients)
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.logger.Error("failed to publish workflow event", "event_type", eventType, "instance_id", inst.ID, "error", err)
	}
}

func message(kind string, inst *Instance, order int) notification.Message {
	msg := notification.Message{
		Kind:         kind,
		ResourceType: string(inst.ResourceType),
		ResourceID:   inst.ResourceID,
	}
	switch kind {
	case notification.KindApprovalRequested:
		msg.Title = "Approval requested"
		msg.Body = fmt.Sprintf("%s %d is waiting for your approval at step %d.", inst.ResourceType, inst.ResourceID, order)
	case notification.KindRoutedBack:
		msg.Title = "Approval requested again"
		msg.Body = fmt.Sprintf("%s %d was sent back to step %d for another review.", inst.ResourceType, inst.ResourceID, order)
	case notification.KindApproved:
		msg.Title = "Request approved"
		msg.Body = fmt.Sprintf("Your %s %d was approved.", inst.ResourceType, inst.ResourceID)
	case notification.KindDeclined:
		msg.Title = "Request declined"
		msg.Body = fmt.Sprintf("Your %s %d was declined.", inst.ResourceType, inst.ResourceID)
	case notification.KindReturned:
		msg.Title = "Changes requested"
		msg.Body = fmt.Sprintf("Your %s %d was returned to you for changes.", inst.ResourceType, inst.ResourceID)
	}
	return msg
}

// declinedBackMessage tells the owner that a review step declined and sent
// the request back to an earlier step.
func declinedBackMessage(inst *Instance, from, to int) notification.Message {
	return notification.Message{
		Kind:         notification.KindDeclined,
		Title:        "Request declined at a review step",
		Body:         fmt.Sprintf("Your %s %d was declined at step %d and sent back to step %d.", inst.ResourceType, inst.ResourceID, from, to),
		ResourceType: string(inst.ResourceType),
		ResourceID:   inst.ResourceID,
	}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func notifyAll(ctx context.Context, sink notification.Sink, userIDs []int64, msg notification.Message) error {
	for _, id := range userIDs {
		m := msg
		m.UserID = id
		if err := sink.Notify(ctx, m); err != nil {
			return fmt.Errorf("notify user %d: %w", id, err)
		}
	}
	return nil
}
