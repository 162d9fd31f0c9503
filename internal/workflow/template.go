package workflow

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"

	"github.com/frahmantamala/hr-approval/internal/approver"
	workflowDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/workflow"
	"github.com/frahmantamala/hr-approval/internal/location"
	"github.com/frahmantamala/hr-approval/internal/resource"
)

type TemplateStatus string

const (
	TemplateActive     TemplateStatus = "active"
	TemplateInactive   TemplateStatus = "inactive"
	TemplateDeprecated TemplateStatus = "deprecated"
)

type Template struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	ResourceType resource.Type  `json:"resource_type"`
	LocationID   int64          `json:"location_id"`
	StaffType    *string        `json:"staff_type,omitempty"`
	LeaveType    *string        `json:"leave_type,omitempty"`
	Version      int            `json:"version"`
	Status       TemplateStatus `json:"status"`
	CreatedBy    int64          `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	Steps        []*Step        `json:"steps"`
}

// Step is one stage of a template. It is also snapshotted as JSON into every
// step instance, so running instances never see later template edits.
type Step struct {
	Order              int            `json:"step_order"`
	Name               string         `json:"name"`
	RequiredPermission string         `json:"required_permission"`
	StrategyName       string         `json:"approver_strategy"`
	IncludeManager     bool           `json:"include_manager"`
	RequiredRoles      []int64        `json:"required_roles,omitempty"`
	Scope              location.Scope `json:"location_scope"`
	AllowDecline       bool           `json:"allow_decline"`
	AllowAdjust        bool           `json:"allow_adjust"`
	Conditions         *RuleGroup     `json:"conditional_rules,omitempty"`

	Strategy approver.Strategy `json:"-"`
}

// Compile parses the stored strategy and scope names once, at load time.
func (s *Step) Compile() error {
	strategy, err := approver.ParseStrategy(s.StrategyName, s.IncludeManager, s.RequiredRoles)
	if err != nil {
		return fmt.Errorf("step %d: %w", s.Order, err)
	}
	scope, err := location.ParseScope(string(s.Scope))
	if err != nil {
		return fmt.Errorf("step %d: %w", s.Order, err)
	}
	if err := s.Conditions.Validate(); err != nil {
		return fmt.Errorf("step %d: %w", s.Order, err)
	}
	s.Strategy = strategy
	s.Scope = scope
	return nil
}

func (s *Step) ApproverConfig() approver.StepConfig {
	return approver.StepConfig{
		RequiredPermission: s.RequiredPermission,
		Strategy:           s.Strategy,
		Scope:              s.Scope,
	}
}

// Applies filters the template by the submission's staff and leave type. A
// nil filter matches anything.
func (t *Template) Applies(attrs map[string]interface{}) bool {
	if t.StaffType != nil && fmt.Sprint(attrs["staff_type"]) != *t.StaffType {
		return false
	}
	if t.LeaveType != nil && fmt.Sprint(attrs["leave_type"]) != *t.LeaveType {
		return false
	}
	return true
}

// Specificity counts the filters set, so narrower templates win ties.
func (t *Template) Specificity() int {
	n := 0
	if t.StaffType != nil {
		n++
	}
	if t.LeaveType != nil {
		n++
	}
	return n
}

func (t *Template) Step(order int) *Step {
	for _, s := range t.Steps {
		if s.Order == order {
			return s
		}
	}
	return nil
}

func ToDataModel(t *Template) (*workflowDatamodel.WorkflowTemplate, error) {
	row := &workflowDatamodel.WorkflowTemplate{
		ID:           t.ID,
		Name:         t.Name,
		ResourceType: string(t.ResourceType),
		LocationID:   t.LocationID,
		StaffType:    t.StaffType,
		LeaveType:    t.LeaveType,
		Version:      t.Version,
		Status:       string(t.Status),
		CreatedBy:    t.CreatedBy,
	}
	for _, s := range t.Steps {
		roles, err := json.Marshal(s.RequiredRoles)
		if err != nil {
			return nil, err
		}
		var rules datatypes.JSON
		if s.Conditions != nil {
			b, err := json.Marshal(s.Conditions)
			if err != nil {
				return nil, err
			}
			rules = datatypes.JSON(b)
		}
		row.Steps = append(row.Steps, workflowDatamodel.WorkflowStep{
			StepOrder:          s.Order,
			Name:               s.Name,
			RequiredPermission: s.RequiredPermission,
			ApproverStrategy:   s.StrategyName,
			IncludeManager:     s.IncludeManager,
			RequiredRoles:      datatypes.JSON(roles),
			LocationScope:      string(s.Scope),
			AllowDecline:       s.AllowDecline,
			AllowAdjust:        s.AllowAdjust,
			ConditionalRules:   rules,
		})
	}
	return row, nil
}

// FromDataModel decodes the JSON columns and compiles every step.
func FromDataModel(row *workflowDatamodel.WorkflowTemplate) (*Template, error) {
	t := &Template{
		ID:           row.ID,
		Name:         row.Name,
		ResourceType: resource.Type(row.ResourceType),
		LocationID:   row.LocationID,
		StaffType:    row.StaffType,
		LeaveType:    row.LeaveType,
		Version:      row.Version,
		Status:       TemplateStatus(row.Status),
		CreatedBy:    row.CreatedBy,
		CreatedAt:    row.CreatedAt,
	}
	for _, sr := range row.Steps {
		s := &Step{
			Order:              sr.StepOrder,
			Name:               sr.Name,
			RequiredPermission: sr.RequiredPermission,
			StrategyName:       sr.ApproverStrategy,
			IncludeManager:     sr.IncludeManager,
			Scope:              location.Scope(sr.LocationScope),
			AllowDecline:       sr.AllowDecline,
			AllowAdjust:        sr.AllowAdjust,
		}
		if len(sr.RequiredRoles) > 0 {
			if err := json.Unmarshal(sr.RequiredRoles, &s.RequiredRoles); err != nil {
				return nil, fmt.Errorf("template %d step %d: required_roles: %w", row.ID, sr.StepOrder, err)
			}
		}
		if len(sr.ConditionalRules) > 0 && string(sr.ConditionalRules) != "null" {
			s.Conditions = &RuleGroup{}
			if err := json.Unmarshal(sr.ConditionalRules, s.Conditions); err != nil {
				return nil, fmt.Errorf("template %d step %d: conditional_rules: %w", row.ID, sr.StepOrder, err)
			}
		}
		if err := s.Compile(); err != nil {
			return nil, fmt.Errorf("template %d: %w", row.ID, err)
		}
		t.Steps = append(t.Steps, s)
	}
	sortSteps(t.Steps)
	return t, nil
}

func sortSteps(steps []*Step) {
	sort.Slice(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
}

// DecodeStepConfig restores a step snapshot stored on a step instance.
func DecodeStepConfig(raw []byte) (*Step, error) {
	var s Step
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if err := s.Compile(); err != nil {
		return nil, err
	}
	return &s, nil
}
