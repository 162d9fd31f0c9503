package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	workflowDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/workflow"
	"github.com/frahmantamala/hr-approval/internal/resource"
	"github.com/frahmantamala/hr-approval/internal/workflow"
)

type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) workflow.TemplateRepository {
	return &TemplateRepository{db: db}
}

func preloadSteps(db *gorm.DB) *gorm.DB {
	return db.Order("step_order ASC")
}

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*workflow.Template, error) {
	var row workflowDatamodel.WorkflowTemplate
	err := r.db.WithContext(ctx).Preload("Steps", preloadSteps).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return workflow.FromDataModel(&row)
}

func (r *TemplateRepository) List(ctx context.Context, filter workflow.TemplateFilter) ([]*workflow.Template, error) {
	q := r.db.WithContext(ctx).Preload("Steps", preloadSteps).Order("id DESC")
	if filter.ResourceType != nil {
		q = q.Where("resource_type = ?", string(*filter.ResourceType))
	}
	if filter.LocationID != nil {
		q = q.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}

	var rows []*workflowDatamodel.WorkflowTemplate
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func (r *TemplateRepository) ActiveFor(ctx context.Context, resourceType resource.Type, locationIDs []int64) ([]*workflow.Template, error) {
	if len(locationIDs) == 0 {
		return nil, nil
	}
	var rows []*workflowDatamodel.WorkflowTemplate
	err := r.db.WithContext(ctx).
		Preload("Steps", preloadSteps).
		Where("resource_type = ? AND status = ? AND location_id IN ?",
			string(resourceType), string(workflow.TemplateActive), locationIDs).
		Order("version DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func fromRows(rows []*workflowDatamodel.WorkflowTemplate) ([]*workflow.Template, error) {
	out := make([]*workflow.Template, 0, len(rows))
	for _, row := range rows {
		t, err := workflow.FromDataModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// sameKey matches templates sharing resource type, location and filters.
func sameKey(q *gorm.DB, t *workflow.Template) *gorm.DB {
	q = q.Where("resource_type = ? AND location_id = ?", string(t.ResourceType), t.LocationID)
	if t.StaffType == nil {
		q = q.Where("staff_type IS NULL")
	} else {
		q = q.Where("staff_type = ?", *t.StaffType)
	}
	if t.LeaveType == nil {
		q = q.Where("leave_type IS NULL")
	} else {
		q = q.Where("leave_type = ?", *t.LeaveType)
	}
	return q
}

func (r *TemplateRepository) Create(ctx context.Context, t *workflow.Template) error {
	row, err := workflow.ToDataModel(t)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			key := fmt.Sprintf("template:%s:%d", t.ResourceType, t.LocationID)
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
				return err
			}
		}

		var latest int
		err := sameKey(tx.Model(&workflowDatamodel.WorkflowTemplate{}), t).
			Select("COALESCE(MAX(version), 0)").
			Scan(&latest).Error
		if err != nil {
			return err
		}

		err = sameKey(tx.Model(&workflowDatamodel.WorkflowTemplate{}), t).
			Where("status = ?", string(workflow.TemplateActive)).
			Update("status", string(workflow.TemplateDeprecated)).Error
		if err != nil {
			return err
		}

		row.Version = latest + 1
		row.Status = string(workflow.TemplateActive)
		if err := tx.Create(row).Error; err != nil {
			return err
		}

		t.ID = row.ID
		t.Version = row.Version
		t.Status = workflow.TemplateActive
		t.CreatedAt = row.CreatedAt
		return nil
	})
}

func (r *TemplateRepository) SetStatus(ctx context.Context, id int64, status workflow.TemplateStatus) error {
	return r.db.WithContext(ctx).
		Model(&workflowDatamodel.WorkflowTemplate{}).
		Where("id = ?", id).
		Update("status", string(status)).Error
}
