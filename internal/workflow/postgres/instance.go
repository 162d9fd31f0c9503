package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appErrors "github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/audit"
	auditPostgres "github.com/frahmantamala/hr-approval/internal/audit/postgres"
	workflowDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/workflow"
	"github.com/frahmantamala/hr-approval/internal/notification"
	notificationPostgres "github.com/frahmantamala/hr-approval/internal/notification/postgres"
	"github.com/frahmantamala/hr-approval/internal/resource"
	resourcePostgres "github.com/frahmantamala/hr-approval/internal/resource/postgres"
	"github.com/frahmantamala/hr-approval/internal/workflow"
)

var openStatuses = []string{string(workflow.StatusSubmitted), string(workflow.StatusUnderReview)}

type InstanceRepository struct {
	db *gorm.DB
}

func NewInstanceRepository(db *gorm.DB) workflow.InstanceRepository {
	return &InstanceRepository{db: db}
}

func preloadStepInstances(db *gorm.DB) *gorm.DB {
	return db.Order("step_order ASC, attempt ASC")
}

func load(db *gorm.DB, id int64) (*workflow.Instance, error) {
	var row workflowDatamodel.WorkflowInstance
	err := db.Preload("Steps", preloadStepInstances).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return workflow.InstanceFromDataModel(&row)
}

func findOpen(db *gorm.DB, resourceType resource.Type, resourceID int64) (*workflow.Instance, error) {
	var row workflowDatamodel.WorkflowInstance
	err := db.Preload("Steps", preloadStepInstances).
		Where("resource_type = ? AND resource_id = ? AND status IN ?", string(resourceType), resourceID, openStatuses).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return workflow.InstanceFromDataModel(&row)
}

func (r *InstanceRepository) Get(ctx context.Context, id int64) (*workflow.Instance, error) {
	return load(r.db.WithContext(ctx), id)
}

func (r *InstanceRepository) FindOpen(ctx context.Context, resourceType resource.Type, resourceID int64) (*workflow.Instance, error) {
	return findOpen(r.db.WithContext(ctx), resourceType, resourceID)
}

func (r *InstanceRepository) WithinTx(ctx context.Context, fn func(uow workflow.UnitOfWork) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&unitOfWork{tx: tx})
	})
}

// WithinInstance takes a row lock on PostgreSQL. SQLite serializes writers
// on its own.
func (r *InstanceRepository) WithinInstance(ctx context.Context, id int64, fn func(uow workflow.UnitOfWork, locked *workflow.Instance) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			var locked workflowDatamodel.WorkflowInstance
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Where("id = ?", id).
				First(&locked).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return appErrors.NewNotFoundError(fmt.Sprintf("workflow instance %d not found", id), appErrors.ErrCodeInstanceNotFound)
				}
				return err
			}
		}

		inst, err := load(tx, id)
		if err != nil {
			return err
		}
		if inst == nil {
			return appErrors.NewNotFoundError(fmt.Sprintf("workflow instance %d not found", id), appErrors.ErrCodeInstanceNotFound)
		}
		return fn(&unitOfWork{tx: tx}, inst)
	})
}

type unitOfWork struct {
	tx *gorm.DB
}

func (u *unitOfWork) Instances() workflow.InstanceStore {
	return &instanceStore{db: u.tx}
}

func (u *unitOfWork) Audit() audit.Sink {
	return auditPostgres.NewRecorder(u.tx)
}

func (u *unitOfWork) Notifier() notification.Sink {
	return notificationPostgres.NewOutbox(u.tx)
}

func (u *unitOfWork) Resources() resource.StatusSyncer {
	return resourcePostgres.NewRepository(u.tx)
}

type instanceStore struct {
	db *gorm.DB
}

func (s *instanceStore) Create(ctx context.Context, inst *workflow.Instance) error {
	row, err := workflow.InstanceToDataModel(inst)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}

	inst.ID = row.ID
	inst.CreatedAt = row.CreatedAt
	inst.UpdatedAt = row.UpdatedAt
	for i, step := range inst.Steps {
		step.ID = row.Steps[i].ID
		step.InstanceID = row.ID
	}
	return nil
}

func (s *instanceStore) FindOpen(ctx context.Context, resourceType resource.Type, resourceID int64) (*workflow.Instance, error) {
	return findOpen(s.db.WithContext(ctx), resourceType, resourceID)
}

func (s *instanceStore) CompleteStep(ctx context.Context, step *workflow.StepInstance) error {
	res := s.db.WithContext(ctx).
		Model(&workflowDatamodel.WorkflowStepInstance{}).
		Where("id = ? AND status = ?", step.ID, string(workflow.StepPending)).
		Updates(map[string]interface{}{
			"status":        string(step.Status),
			"actor_id":      step.ActorID,
			"on_behalf_of":  step.OnBehalfOf,
			"delegation_id": step.DelegationID,
			"acted_at":      step.ActedAt,
			"comment":       step.Comment,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appErrors.NewStateConflict(fmt.Sprintf("step %d of workflow %d is no longer pending", step.StepOrder, step.InstanceID))
	}
	return nil
}

func (s *instanceStore) AppendSteps(ctx context.Context, steps []*workflow.StepInstance) error {
	if len(steps) == 0 {
		return nil
	}
	rows := make([]*workflowDatamodel.WorkflowStepInstance, 0, len(steps))
	for _, step := range steps {
		row, err := workflow.StepInstanceToDataModel(step)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return err
	}
	for i, row := range rows {
		steps[i].ID = row.ID
	}
	return nil
}

func (s *instanceStore) UpdateState(ctx context.Context, inst *workflow.Instance) error {
	res := s.db.WithContext(ctx).
		Model(&workflowDatamodel.WorkflowInstance{}).
		Where("id = ?", inst.ID).
		Updates(map[string]interface{}{
			"status":             string(inst.Status),
			"current_step_order": inst.CurrentStepOrder,
			"completed_at":       inst.CompletedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appErrors.NewNotFoundError(fmt.Sprintf("workflow instance %d not found", inst.ID), appErrors.ErrCodeInstanceNotFound)
	}
	return nil
}
