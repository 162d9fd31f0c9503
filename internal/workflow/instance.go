package workflow

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	workflowDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/workflow"
	"github.com/frahmantamala/hr-approval/internal/resource"
)

type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusDeclined    Status = "declined"
)

type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepDeclined StepStatus = "declined"
	// StepReturned closes a step that was sent back to the owner for adjustment.
	StepReturned StepStatus = "returned"
	// StepSkipped marks a step whose conditional rules did not match the submission.
	StepSkipped StepStatus = "skipped"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionDecline Action = "decline"
	ActionAdjust  Action = "adjust"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionApprove, ActionDecline, ActionAdjust:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

type RoutingKind string

const (
	RouteTerminate   RoutingKind = "terminate"
	RouteBackToStep  RoutingKind = "back_to_step"
	RouteBackToOwner RoutingKind = "back_to_owner"
)

// DeclineRouting says where a declined instance goes next. Step is only
// meaningful for RouteBackToStep.
type DeclineRouting struct {
	Kind RoutingKind `json:"kind"`
	Step int         `json:"step,omitempty"`
}

// ParseDeclineRouting accepts terminate, back_to_owner and back_to_step:<n>.
func ParseDeclineRouting(s string) (DeclineRouting, error) {
	switch RoutingKind(s) {
	case RouteTerminate, RouteBackToOwner:
		return DeclineRouting{Kind: RoutingKind(s)}, nil
	}
	if rest, ok := strings.CutPrefix(s, string(RouteBackToStep)+":"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return DeclineRouting{}, fmt.Errorf("invalid decline routing %q", s)
		}
		return DeclineRouting{Kind: RouteBackToStep, Step: n}, nil
	}
	return DeclineRouting{}, fmt.Errorf("invalid decline routing %q", s)
}

func (r DeclineRouting) String() string {
	if r.Kind == RouteBackToStep {
		return fmt.Sprintf("%s:%d", r.Kind, r.Step)
	}
	return string(r.Kind)
}

type Instance struct {
	ID               int64           `json:"id"`
	TemplateID       int64           `json:"template_id"`
	TemplateVersion  int             `json:"template_version"`
	ResourceType     resource.Type   `json:"resource_type"`
	ResourceID       int64           `json:"resource_id"`
	LocationID       int64           `json:"location_id"`
	CreatorID        int64           `json:"creator_id"`
	CurrentStepOrder int             `json:"current_step_order"`
	Status           Status          `json:"status"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Steps            []*StepInstance `json:"steps"`
}

// StepInstance is one attempt at one step. Re-opening a step appends a new
// attempt, so each row goes from pending to a final status exactly once.
type StepInstance struct {
	ID           int64      `json:"id"`
	InstanceID   int64      `json:"instance_id"`
	StepOrder    int        `json:"step_order"`
	Attempt      int        `json:"attempt"`
	Status       StepStatus `json:"status"`
	ActorID      *int64     `json:"actor_id,omitempty"`
	OnBehalfOf   *int64     `json:"on_behalf_of,omitempty"`
	DelegationID *int64     `json:"delegation_id,omitempty"`
	ActedAt      *time.Time `json:"acted_at,omitempty"`
	Comment      string     `json:"comment,omitempty"`
	Config       *Step      `json:"config"`
}

// IsOpen reports whether the instance still accepts step actions.
func (i *Instance) IsOpen() bool {
	return i.Status == StatusSubmitted || i.Status == StatusUnderReview
}

// Step returns the latest attempt of the step with the given order.
func (i *Instance) Step(order int) *StepInstance {
	var latest *StepInstance
	for _, s := range i.Steps {
		if s.StepOrder == order && (latest == nil || s.Attempt > latest.Attempt) {
			latest = s
		}
	}
	return latest
}

func (i *Instance) CurrentStep() *StepInstance {
	return i.Step(i.CurrentStepOrder)
}

// Orders lists the distinct step orders of the instance, ascending.
func (i *Instance) Orders() []int {
	seen := make(map[int]bool)
	var out []int
	for _, s := range i.Steps {
		if !seen[s.StepOrder] {
			seen[s.StepOrder] = true
			out = append(out, s.StepOrder)
		}
	}
	sort.Ints(out)
	return out
}

// NextActiveOrder returns the first order after `after` whose latest attempt
// was not skipped.
func (i *Instance) NextActiveOrder(after int) (int, bool) {
	for _, order := range i.Orders() {
		if order <= after {
			continue
		}
		if s := i.Step(order); s != nil && s.Status != StepSkipped {
			return order, true
		}
	}
	return 0, false
}

func (i *Instance) PendingSteps() []*StepInstance {
	var out []*StepInstance
	for _, order := range i.Orders() {
		if s := i.Step(order); s != nil && s.Status == StepPending {
			out = append(out, s)
		}
	}
	return out
}

// Snapshot is the audit view of an instance's state.
type Snapshot struct {
	Status           Status `json:"status"`
	CurrentStepOrder int    `json:"current_step_order"`
}

func (i *Instance) Snapshot() Snapshot {
	return Snapshot{Status: i.Status, CurrentStepOrder: i.CurrentStepOrder}
}

func (i *Instance) Clone() *Instance {
	cp := *i
	cp.Steps = make([]*StepInstance, 0, len(i.Steps))
	for _, s := range i.Steps {
		sc := *s
		cp.Steps = append(cp.Steps, &sc)
	}
	return &cp
}

func InstanceToDataModel(i *Instance) (*workflowDatamodel.WorkflowInstance, error) {
	row := &workflowDatamodel.WorkflowInstance{
		ID:               i.ID,
		TemplateID:       i.TemplateID,
		TemplateVersion:  i.TemplateVersion,
		ResourceType:     string(i.ResourceType),
		ResourceID:       i.ResourceID,
		LocationID:       i.LocationID,
		CreatorID:        i.CreatorID,
		CurrentStepOrder: i.CurrentStepOrder,
		Status:           string(i.Status),
		CompletedAt:      i.CompletedAt,
	}
	for _, s := range i.Steps {
		sr, err := StepInstanceToDataModel(s)
		if err != nil {
			return nil, err
		}
		row.Steps = append(row.Steps, *sr)
	}
	return row, nil
}

func StepInstanceToDataModel(s *StepInstance) (*workflowDatamodel.WorkflowStepInstance, error) {
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return nil, fmt.Errorf("encode step %d config: %w", s.StepOrder, err)
	}
	return &workflowDatamodel.WorkflowStepInstance{
		ID:           s.ID,
		InstanceID:   s.InstanceID,
		StepOrder:    s.StepOrder,
		Attempt:      s.Attempt,
		Status:       string(s.Status),
		ActorID:      s.ActorID,
		OnBehalfOf:   s.OnBehalfOf,
		DelegationID: s.DelegationID,
		ActedAt:      s.ActedAt,
		Comment:      s.Comment,
		StepConfig:   datatypes.JSON(cfg),
	}, nil
}

func InstanceFromDataModel(row *workflowDatamodel.WorkflowInstance) (*Instance, error) {
	i := &Instance{
		ID:               row.ID,
		TemplateID:       row.TemplateID,
		TemplateVersion:  row.TemplateVersion,
		ResourceType:     resource.Type(row.ResourceType),
		ResourceID:       row.ResourceID,
		LocationID:       row.LocationID,
		CreatorID:        row.CreatorID,
		CurrentStepOrder: row.CurrentStepOrder,
		Status:           Status(row.Status),
		CompletedAt:      row.CompletedAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	for idx := range row.Steps {
		sr := &row.Steps[idx]
		cfg, err := DecodeStepConfig(sr.StepConfig)
		if err != nil {
			return nil, fmt.Errorf("instance %d step %d: %w", row.ID, sr.StepOrder, err)
		}
		i.Steps = append(i.Steps, &StepInstance{
			ID:           sr.ID,
			InstanceID:   sr.InstanceID,
			StepOrder:    sr.StepOrder,
			Attempt:      sr.Attempt,
			Status:       StepStatus(sr.Status),
			ActorID:      sr.ActorID,
			OnBehalfOf:   sr.OnBehalfOf,
			DelegationID: sr.DelegationID,
			ActedAt:      sr.ActedAt,
			Comment:      sr.Comment,
			Config:       cfg,
		})
	}
	return i, nil
}
