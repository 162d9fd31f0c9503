package delegation

import "time"

type Delegation struct {
	ID                 int64      `gorm:"primaryKey"`
	DelegatorID        int64      `gorm:"column:delegator_user_id;index;not null"`
	DelegateID         int64      `gorm:"column:delegate_user_id;index;not null"`
	PermissionID       int64      `gorm:"column:permission_id;index;not null"`
	LocationID         *int64     `gorm:"column:location_id"`
	IncludeDescendants bool       `gorm:"column:include_descendants;not null;default:false"`
	ValidFrom          time.Time  `gorm:"column:valid_from;not null"`
	ValidUntil         *time.Time `gorm:"column:valid_until"`
	Status             string     `gorm:"column:status;not null;default:active"`
	Reason             string     `gorm:"column:reason"`
	RevokedAt          *time.Time `gorm:"column:revoked_at"`
	RevokedBy          *int64     `gorm:"column:revoked_by"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Delegation) TableName() string {
	return "delegations"
}
