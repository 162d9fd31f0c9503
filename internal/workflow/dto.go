package workflow

import (
	"fmt"

	errors "github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/core/common/validation"
	"github.com/frahmantamala/hr-approval/internal/location"
	"github.com/frahmantamala/hr-approval/internal/resource"
)

type StepDTO struct {
	StepOrder          int        `json:"step_order"`
	Name               string     `json:"name"`
	RequiredPermission string     `json:"required_permission"`
	ApproverStrategy   string     `json:"approver_strategy"`
	IncludeManager     bool       `json:"include_manager"`
	RequiredRoles      []int64    `json:"required_roles,omitempty"`
	LocationScope      string     `json:"location_scope"`
	AllowDecline       bool       `json:"allow_decline"`
	AllowAdjust        bool       `json:"allow_adjust"`
	ConditionalRules   *RuleGroup `json:"conditional_rules,omitempty"`
}

type CreateTemplateDTO struct {
	Name         string    `json:"name"`
	ResourceType string    `json:"resource_type"`
	LocationID   int64     `json:"location_id"`
	StaffType    *string   `json:"staff_type,omitempty"`
	LeaveType    *string   `json:"leave_type,omitempty"`
	Steps        []StepDTO `json:"steps"`
}

// Validate checks the template's shape. Checks against reference data
// (permissions, roles, locations) happen in the service.
func (d CreateTemplateDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(255)
	v.Field("resource_type", d.ResourceType).Required().OneOf(string(resource.TypeLeave), string(resource.TypeTimesheet))
	v.Field("location_id", d.LocationID).Required().MinInt(1, errors.ErrCodeValidationFailed)
	v.Field("steps", len(d.Steps)).MinInt(1, errors.ErrCodeInvalidTemplate)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}

	if d.LeaveType != nil && d.ResourceType != string(resource.TypeLeave) {
		return errors.NewValidationFieldError("leave_type", "leave_type only applies to leave templates", errors.ErrCodeInvalidTemplate)
	}

	seen := make(map[int]bool, len(d.Steps))
	for i, s := range d.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if seen[s.StepOrder] {
			return errors.NewValidationFieldError(field+".step_order",
				fmt.Sprintf("step_order %d is duplicated", s.StepOrder), errors.ErrCodeInvalidTemplate)
		}
		seen[s.StepOrder] = true

		sv := validation.NewValidator()
		sv.Field(field+".required_permission", s.RequiredPermission).Required()
		sv.Field(field+".approver_strategy", s.ApproverStrategy).Required().OneOf("manager", "role", "permission", "combined")
		sv.Field(field+".location_scope", s.LocationScope).Required().OneOf(
			string(location.ScopeSame), string(location.ScopeParent), string(location.ScopeDescendants), string(location.ScopeAll))
		sv.Field(field+".name", s.Name).MaxLength(255)
		if appErr := sv.Validate(); appErr != nil {
			return appErr
		}
		if err := s.ConditionalRules.Validate(); err != nil {
			return errors.NewValidationFieldError(field+".conditional_rules", err.Error(), errors.ErrCodeInvalidTemplate)
		}
	}
	for order := 1; order <= len(d.Steps); order++ {
		if !seen[order] {
			return errors.NewValidationFieldError("steps",
				fmt.Sprintf("step orders must run from 1 to %d without gaps, %d is missing", len(d.Steps), order),
				errors.ErrCodeInvalidTemplate)
		}
	}
	return nil
}

// ToTemplate builds the unsaved template and compiles its steps.
func (d CreateTemplateDTO) ToTemplate(createdBy int64) (*Template, error) {
	t := &Template{
		Name:         d.Name,
		ResourceType: resource.Type(d.ResourceType),
		LocationID:   d.LocationID,
		StaffType:    d.StaffType,
		LeaveType:    d.LeaveType,
		Status:       TemplateActive,
		CreatedBy:    createdBy,
	}
	for _, s := range d.Steps {
		step := &Step{
			Order:              s.StepOrder,
			Name:               s.Name,
			RequiredPermission: s.RequiredPermission,
			StrategyName:       s.ApproverStrategy,
			IncludeManager:     s.IncludeManager,
			RequiredRoles:      s.RequiredRoles,
			Scope:              location.Scope(s.LocationScope),
			AllowDecline:       s.AllowDecline,
			AllowAdjust:        s.AllowAdjust,
			Conditions:         s.ConditionalRules,
		}
		if err := step.Compile(); err != nil {
			return nil, err
		}
		t.Steps = append(t.Steps, step)
	}
	sortSteps(t.Steps)
	return t, nil
}

type SubmitDTO struct {
	ResourceType string `json:"resource_type"`
	ResourceID   int64  `json:"resource_id"`
}

func (d SubmitDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("resource_type", d.ResourceType).Required().OneOf(string(resource.TypeLeave), string(resource.TypeTimesheet))
	v.Field("resource_id", d.ResourceID).Required().MinInt(1, errors.ErrCodeValidationFailed)
	return v.Validate()
}

// ActionDTO is the body of POST /workflow-instances/{id}/actions. Routing
// uses the ParseDeclineRouting syntax.
type ActionDTO struct {
	Action       string `json:"action"`
	Comment      string `json:"comment"`
	Routing      string `json:"routing,omitempty"`
	ExpectedStep *int   `json:"expected_step,omitempty"`
}

func (d ActionDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("action", d.Action).Required().OneOf(string(ActionApprove), string(ActionDecline), string(ActionAdjust))
	v.Field("comment", d.Comment).MaxLength(2000)
	if d.ExpectedStep != nil {
		v.Field("expected_step", *d.ExpectedStep).MinInt(1, errors.ErrCodeValidationFailed)
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	if d.Routing != "" {
		if _, err := ParseDeclineRouting(d.Routing); err != nil {
			return errors.NewValidationFieldError("routing", err.Error(), errors.ErrCodeInvalidRouting)
		}
	}
	return nil
}

type TemplatesResponse struct {
	Templates []*Template `json:"templates"`
}

type TemplatePreview struct {
	TemplateID int64          `json:"template_id"`
	LocationID int64          `json:"location_id"`
	CreatorID  int64          `json:"creator_id"`
	Steps      []*StepPreview `json:"steps"`
}
