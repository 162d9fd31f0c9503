package audit

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID           int64          `gorm:"primaryKey"`
	ActorID      int64          `gorm:"column:actor_id;index"`
	Action       string         `gorm:"column:action;not null"`
	ResourceType string         `gorm:"column:resource_type;not null"`
	ResourceID   int64          `gorm:"column:resource_id;not null"`
	Before       datatypes.JSON `gorm:"column:before_state"`
	After        datatypes.JSON `gorm:"column:after_state"`
	Context      datatypes.JSON `gorm:"column:context"`
	SourceIP     string         `gorm:"column:source_ip"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
