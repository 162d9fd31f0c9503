package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/user"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type User struct {
	ID         int64             `json:"id"`
	Email      string            `json:"email"`
	Name       string            `json:"name"`
	ManagerID  *int64            `json:"manager_id,omitempty"`
	LocationID *int64            `json:"location_id,omitempty"`
	StaffType  string            `json:"staff_type,omitempty"`
	Status     string            `json:"status"`
	Roles      []*RoleAssignment `json:"roles"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// RoleAssignment is one active role of the user, optionally pinned to a
// location.
type RoleAssignment struct {
	RoleID      int64    `json:"role_id"`
	RoleName    string   `json:"role_name"`
	LocationID  *int64   `json:"location_id,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		ManagerID:  u.ManagerID,
		LocationID: u.LocationID,
		StaffType:  u.StaffType,
		Status:     u.Status,
		Roles:      []*RoleAssignment{},
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
