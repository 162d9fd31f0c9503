package resource

import (
	"time"

	errors "github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/core/common/validation"
)

type CreateLeaveRequestDTO struct {
	LocationID int64     `json:"location_id"`
	LeaveType  string    `json:"leave_type"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Days       float64   `json:"days"`
	Reason     string    `json:"reason"`
}

func (d CreateLeaveRequestDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("location_id", d.LocationID).Required()
	v.Field("leave_type", d.LeaveType).Required().MaxLength(50)
	v.Field("start_date", d.StartDate).Required()
	v.Field("end_date", d.EndDate).Required().After(d.StartDate.Add(-time.Nanosecond), "start_date")
	v.Field("reason", d.Reason).MaxLength(1000)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	if d.Days <= 0 {
		return errors.NewValidationFieldError("days", "days must be positive", errors.ErrCodeValidationFailed)
	}
	return nil
}

type CreateTimesheetDTO struct {
	LocationID  int64     `json:"location_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	TotalHours  float64   `json:"total_hours"`
}

func (d CreateTimesheetDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("location_id", d.LocationID).Required()
	v.Field("period_start", d.PeriodStart).Required()
	v.Field("period_end", d.PeriodEnd).Required().After(d.PeriodStart, "period_start")
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	if d.TotalHours < 0 {
		return errors.NewValidationFieldError("total_hours", "total_hours cannot be negative", errors.ErrCodeValidationFailed)
	}
	return nil
}

// Record is the API view of a draft or submitted resource.
type Record struct {
	Type       Type                   `json:"type"`
	ID         int64                  `json:"id"`
	OwnerID    int64                  `json:"owner_id"`
	LocationID int64                  `json:"location_id"`
	Status     Status                 `json:"status"`
	Attributes map[string]interface{} `json:"attributes"`
}

func ToRecord(r *Resource) *Record {
	return &Record{
		Type:       r.Type,
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		LocationID: r.LocationID,
		Status:     r.Status,
		Attributes: r.Attributes,
	}
}
