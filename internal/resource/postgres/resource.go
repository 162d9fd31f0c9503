package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	appErrors "github.com/frahmantamala/hr-approval/internal"
	resourceDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/resource"
	userDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/hr-approval/internal/resource"
)

type Repository struct {
	db *gorm.DB
}

// NewRepository works on db, which may be a transaction handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func model(resourceType resource.Type) (interface{}, error) {
	switch resourceType {
	case resource.TypeLeave:
		return &resourceDatamodel.LeaveRequest{}, nil
	case resource.TypeTimesheet:
		return &resourceDatamodel.Timesheet{}, nil
	}
	return nil, fmt.Errorf("unknown resource type %q", resourceType)
}

// SetResourceStatus fails when the record is missing so that a transition
// never commits against a resource that is not there.
func (r *Repository) SetResourceStatus(ctx context.Context, resourceType resource.Type, resourceID int64, status resource.Status) error {
	m, err := model(resourceType)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(m).Where("id = ?", resourceID).Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appErrors.NewNotFoundError(fmt.Sprintf("%s %d not found", resourceType, resourceID), appErrors.ErrCodeResourceNotFound)
	}
	return nil
}

func (r *Repository) Load(ctx context.Context, resourceType resource.Type, resourceID int64) (*resource.Resource, error) {
	db := r.db.WithContext(ctx)
	var out *resource.Resource

	switch resourceType {
	case resource.TypeLeave:
		var lr resourceDatamodel.LeaveRequest
		if err := db.Where("id = ?", resourceID).First(&lr).Error; err != nil {
			return notFound(err)
		}
		out = &resource.Resource{
			Type: resourceType, ID: lr.ID, OwnerID: lr.UserID, LocationID: lr.LocationID, Status: resource.Status(lr.Status),
			Attributes: map[string]interface{}{
				"leave_type": lr.LeaveType,
				"days":       lr.Days,
			},
		}
	case resource.TypeTimesheet:
		var ts resourceDatamodel.Timesheet
		if err := db.Where("id = ?", resourceID).First(&ts).Error; err != nil {
			return notFound(err)
		}
		out = &resource.Resource{
			Type: resourceType, ID: ts.ID, OwnerID: ts.UserID, LocationID: ts.LocationID, Status: resource.Status(ts.Status),
			Attributes: map[string]interface{}{
				"total_hours": ts.TotalHours,
			},
		}
	default:
		return nil, fmt.Errorf("unknown resource type %q", resourceType)
	}

	var owner userDatamodel.User
	err := db.Select("staff_type").Where("id = ?", out.OwnerID).First(&owner).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	out.Attributes["staff_type"] = owner.StaffType
	return out, nil
}

func notFound(err error) (*resource.Resource, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *Repository) CreateLeaveRequest(ctx context.Context, lr *resourceDatamodel.LeaveRequest) error {
	return r.db.WithContext(ctx).Create(lr).Error
}

func (r *Repository) CreateTimesheet(ctx context.Context, ts *resourceDatamodel.Timesheet) error {
	return r.db.WithContext(ctx).Create(ts).Error
}
