package location

import "time"

type Location struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	ParentID  *int64    `gorm:"column:parent_id;index"`
	Path      string    `gorm:"column:path;index;not null"`
	Status    string    `gorm:"column:status;not null;default:active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Location) TableName() string {
	return "locations"
}
