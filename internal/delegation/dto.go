package delegation

import (
	"fmt"
	"time"

	errors "github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/core/common/validation"
)

type CreateDelegationDTO struct {
	DelegateID         int64      `json:"delegate_id"`
	Permission         string     `json:"permission"`
	LocationID         *int64     `json:"location_id,omitempty"`
	IncludeDescendants bool       `json:"include_descendants"`
	ValidFrom          time.Time  `json:"valid_from"`
	ValidUntil         *time.Time `json:"valid_until,omitempty"`
	Reason             string     `json:"reason"`
}

// Validate checks the request shape. maxWindow of zero disables the length
// limit; otherwise an end date is mandatory.
func (d CreateDelegationDTO) Validate(delegatorID int64, maxWindow time.Duration) *errors.AppError {
	v := validation.NewValidator()
	v.Field("delegate_id", d.DelegateID).Required()
	v.Field("permission", d.Permission).Required().MaxLength(100)
	v.Field("valid_from", d.ValidFrom).Required()
	v.Field("valid_until", d.ValidUntil).After(d.ValidFrom, "valid_from")
	v.Field("reason", d.Reason).MaxLength(500)
	if d.LocationID != nil {
		v.Field("location_id", *d.LocationID).MinInt(1, errors.ErrCodeValidationFailed)
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}

	if d.DelegateID == delegatorID {
		return errors.NewValidationFieldError("delegate_id", "cannot delegate to yourself", errors.ErrCodeValidationFailed)
	}
	if d.IncludeDescendants && d.LocationID == nil {
		return errors.NewValidationFieldError("include_descendants", "include_descendants requires a location", errors.ErrCodeValidationFailed)
	}
	if maxWindow > 0 {
		if d.ValidUntil == nil {
			return errors.NewValidationFieldError("valid_until", "valid_until is required", errors.ErrCodeInvalidWindow)
		}
		if d.ValidUntil.Sub(d.ValidFrom) > maxWindow {
			return errors.NewValidationFieldError("valid_until",
				fmt.Sprintf("delegation window must not exceed %s", maxWindow), errors.ErrCodeInvalidWindow)
		}
	}
	return nil
}

// ListFilter selects delegations given by or to a user.
type ListFilter struct {
	DelegatorID *int64
	DelegateID  *int64
	Status      string
}

type DelegationsResponse struct {
	Delegations []*Delegation `json:"delegations"`
}
