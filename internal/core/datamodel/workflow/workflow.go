package workflow

import (
	"time"

	"gorm.io/datatypes"
)

type WorkflowTemplate struct {
	ID           int64          `gorm:"primaryKey"`
	Name         string         `gorm:"column:name;not null"`
	ResourceType string         `gorm:"column:resource_type;index;not null"`
	LocationID   int64          `gorm:"column:location_id;index;not null"`
	StaffType    *string        `gorm:"column:staff_type"`
	LeaveType    *string        `gorm:"column:leave_type"`
	Version      int            `gorm:"column:version;not null;default:1"`
	Status       string         `gorm:"column:status;not null;default:active"`
	CreatedBy    int64          `gorm:"column:created_by"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	Steps        []WorkflowStep `gorm:"foreignKey:TemplateID"`
}

func (WorkflowTemplate) TableName() string {
	return "workflow_templates"
}

type WorkflowStep struct {
	ID                 int64          `gorm:"primaryKey"`
	TemplateID         int64          `gorm:"column:template_id;index;not null"`
	StepOrder          int            `gorm:"column:step_order;not null"`
	Name               string         `gorm:"column:name"`
	RequiredPermission string         `gorm:"column:required_permission;not null"`
	ApproverStrategy   string         `gorm:"column:approver_strategy;not null"`
	IncludeManager     bool           `gorm:"column:include_manager;not null;default:false"`
	RequiredRoles      datatypes.JSON `gorm:"column:required_roles"`
	LocationScope      string         `gorm:"column:location_scope;not null"`
	AllowDecline       bool           `gorm:"column:allow_decline;not null"`
	AllowAdjust        bool           `gorm:"column:allow_adjust;not null;default:false"`
	ConditionalRules   datatypes.JSON `gorm:"column:conditional_rules"`
}

func (WorkflowStep) TableName() string {
	return "workflow_steps"
}

type WorkflowInstance struct {
	ID               int64                  `gorm:"primaryKey"`
	TemplateID       int64                  `gorm:"column:template_id;index;not null"`
	TemplateVersion  int                    `gorm:"column:template_version;not null"`
	ResourceType     string                 `gorm:"column:resource_type;not null"`
	ResourceID       int64                  `gorm:"column:resource_id;not null"`
	LocationID       int64                  `gorm:"column:location_id;not null"`
	CreatorID        int64                  `gorm:"column:creator_id;index;not null"`
	CurrentStepOrder int                    `gorm:"column:current_step_order;not null"`
	Status           string                 `gorm:"column:status;not null"`
	CompletedAt      *time.Time             `gorm:"column:completed_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
	Steps            []WorkflowStepInstance `gorm:"foreignKey:InstanceID"`
}

func (WorkflowInstance) TableName() string {
	return "workflow_instances"
}

type WorkflowStepInstance struct {
	ID           int64          `gorm:"primaryKey"`
	InstanceID   int64          `gorm:"column:instance_id;index;not null"`
	StepOrder    int            `gorm:"column:step_order;not null"`
	Attempt      int            `gorm:"column:attempt;not null;default:1"`
	Status       string         `gorm:"column:status;not null"`
	ActorID      *int64         `gorm:"column:actor_id"`
	OnBehalfOf   *int64         `gorm:"column:on_behalf_of"`
	DelegationID *int64         `gorm:"column:delegation_id"`
	ActedAt      *time.Time     `gorm:"column:acted_at"`
	Comment      string         `gorm:"column:comment"`
	StepConfig   datatypes.JSON `gorm:"column:step_config"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (WorkflowStepInstance) TableName() string {
	return "workflow_step_instances"
}
