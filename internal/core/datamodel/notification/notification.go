package notification

import "time"

type Notification struct {
	ID           int64      `gorm:"primaryKey"`
	UserID       int64      `gorm:"column:user_id;index;not null"`
	Kind         string     `gorm:"column:kind;not null"`
	Title        string     `gorm:"column:title;not null"`
	Message      string     `gorm:"column:message"`
	ResourceType string     `gorm:"column:resource_type"`
	ResourceID   int64      `gorm:"column:resource_id"`
	ReadAt       *time.Time `gorm:"column:read_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
