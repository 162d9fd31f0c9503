package user

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           int64          `gorm:"primaryKey"`
	Email        string         `gorm:"column:email;uniqueIndex;not null"`
	Name         string         `gorm:"column:name;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	ManagerID    *int64         `gorm:"column:manager_id;index"`
	LocationID   *int64         `gorm:"column:location_id;index"`
	StaffType    string         `gorm:"column:staff_type"`
	Status       string         `gorm:"column:status;not null;default:active"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (User) TableName() string {
	return "users"
}

type Role struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	Status      string    `gorm:"column:status;not null;default:active"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Role) TableName() string {
	return "roles"
}

type Permission struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Module      string    `gorm:"column:module"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Permission) TableName() string {
	return "permissions"
}

type RolePermission struct {
	RoleID       int64 `gorm:"column:role_id;primaryKey"`
	PermissionID int64 `gorm:"column:permission_id;primaryKey"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

type UserRole struct {
	ID         int64     `gorm:"primaryKey"`
	UserID     int64     `gorm:"column:user_id;index;not null"`
	RoleID     int64     `gorm:"column:role_id;index;not null"`
	LocationID *int64    `gorm:"column:location_id"`
	Status     string    `gorm:"column:status;not null;default:active"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// UserPermissionScope binds one permission to one user, either globally or
// at a location, inside a validity window.
type UserPermissionScope struct {
	ID                 int64      `gorm:"primaryKey"`
	UserID             int64      `gorm:"column:user_id;index;not null"`
	PermissionID       int64      `gorm:"column:permission_id;index;not null"`
	IsGlobal           bool       `gorm:"column:is_global;not null;default:false"`
	LocationID         *int64     `gorm:"column:location_id"`
	IncludeDescendants bool       `gorm:"column:include_descendants;not null;default:false"`
	ValidFrom          time.Time  `gorm:"column:valid_from;not null"`
	ValidUntil         *time.Time `gorm:"column:valid_until"`
	Status             string     `gorm:"column:status;not null;default:active"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (UserPermissionScope) TableName() string {
	return "user_permission_scopes"
}
