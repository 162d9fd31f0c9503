package location

import (
	errors "github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/core/common/validation"
)

type CreateLocationDTO struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

func (d CreateLocationDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(150)
	if d.ParentID != nil {
		v.Field("parent_id", d.ParentID).MinInt(1, errors.ErrCodeValidationFailed)
	}
	return v.Validate()
}

// MoveLocationDTO re-parents a location. A nil ParentID makes it a root.
type MoveLocationDTO struct {
	ParentID *int64 `json:"parent_id"`
}

type LocationsResponse struct {
	Locations []*Location `json:"locations"`
}
