package delegation

import (
	"time"

	errors "github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/authority"
	delegationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/delegation"
)

type Delegation struct {
	ID                 int64                      `json:"id"`
	DelegatorID        int64                      `json:"delegator_id"`
	DelegateID         int64                      `json:"delegate_id"`
	PermissionID       int64                      `json:"permission_id"`
	Permission         string                     `json:"permission,omitempty"`
	LocationID         *int64                     `json:"location_id,omitempty"`
	IncludeDescendants bool                       `json:"include_descendants"`
	ValidFrom          time.Time                  `json:"valid_from"`
	ValidUntil         *time.Time                 `json:"valid_until,omitempty"`
	Status             authority.DelegationStatus `json:"status"`
	Reason             string                     `json:"reason,omitempty"`
	RevokedAt          *time.Time                 `json:"revoked_at,omitempty"`
	RevokedBy          *int64                     `json:"revoked_by,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
}

func (d *Delegation) IsActive() bool {
	return d.Status == authority.DelegationActive
}

func (d *Delegation) Window() authority.Window {
	return authority.Window{From: d.ValidFrom, Until: d.ValidUntil}
}

var (
	ErrDelegationNotFound = errors.NewNotFoundError("Delegation not found", errors.ErrCodeDelegationNotFound)
	ErrOverlap            = errors.NewConflictError("An overlapping active delegation already exists for this delegate and permission", errors.ErrCodeDelegationOverlap)
	ErrNotActive          = errors.NewConflictError("Delegation is no longer active", errors.ErrCodeDelegationState)
	ErrDelegateInactive   = errors.NewValidationFieldError("delegate_id", "delegate must be an active user", errors.ErrCodeUserNotFound)
	ErrUnknownPermission  = errors.NewValidationFieldError("permission", "permission does not exist", errors.ErrCodePermissionNotFound)
	ErrUnknownLocation    = errors.NewValidationFieldError("location_id", "location does not exist", errors.ErrCodeLocationNotFound)
	ErrNotDelegator       = errors.NewForbiddenError("Only the delegator can revoke a delegation", errors.ErrCodeAuthorizationDenied)
)

func ToDataModel(d *Delegation) *delegationDatamodel.Delegation {
	return &delegationDatamodel.Delegation{
		ID:                 d.ID,
		DelegatorID:        d.DelegatorID,
		DelegateID:         d.DelegateID,
		PermissionID:       d.PermissionID,
		LocationID:         d.LocationID,
		IncludeDescendants: d.IncludeDescendants,
		ValidFrom:          d.ValidFrom,
		ValidUntil:         d.ValidUntil,
		Status:             string(d.Status),
		Reason:             d.Reason,
		RevokedAt:          d.RevokedAt,
		RevokedBy:          d.RevokedBy,
		CreatedAt:          d.CreatedAt,
	}
}

func FromDataModel(d *delegationDatamodel.Delegation) *Delegation {
	return &Delegation{
		ID:                 d.ID,
		DelegatorID:        d.DelegatorID,
		DelegateID:         d.DelegateID,
		PermissionID:       d.PermissionID,
		LocationID:         d.LocationID,
		IncludeDescendants: d.IncludeDescendants,
		ValidFrom:          d.ValidFrom,
		ValidUntil:         d.ValidUntil,
		Status:             authority.DelegationStatus(d.Status),
		Reason:             d.Reason,
		RevokedAt:          d.RevokedAt,
		RevokedBy:          d.RevokedBy,
		CreatedAt:          d.CreatedAt,
	}
}
