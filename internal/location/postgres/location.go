package postgres

import (
	"context"
	"errors"

	locationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/location"
	"github.com/frahmantamala/hr-approval/internal/location"
	"gorm.io/gorm"
)

type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) location.RepositoryAPI {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) GetByID(ctx context.Context, id int64) (*locationDatamodel.Location, error) {
	var loc locationDatamodel.Location
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&loc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loc, nil
}

func (r *LocationRepository) List(ctx context.Context, activeOnly bool) ([]*locationDatamodel.Location, error) {
	var locs []*locationDatamodel.Location
	q := r.db.WithContext(ctx).Order("path ASC")
	if activeOnly {
		q = q.Where("status = ?", string(location.StatusActive))
	}
	err := q.Find(&locs).Error
	return locs, err
}

func (r *LocationRepository) ListByPathPrefix(ctx context.Context, prefix string) ([]*locationDatamodel.Location, error) {
	var locs []*locationDatamodel.Location
	err := r.db.WithContext(ctx).
		Where("path LIKE ?", prefix+"%").
		Order("path ASC").
		Find(&locs).Error
	return locs, err
}

func (r *LocationRepository) Create(ctx context.Context, loc *locationDatamodel.Location, parentPath string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the path embeds the generated id, so insert first and fill it in
		loc.Path = ""
		if err := tx.Create(loc).Error; err != nil {
			return err
		}
		loc.Path = location.BuildPath(parentPath, loc.ID)
		return tx.Model(loc).Update("path", loc.Path).Error
	})
}

func (r *LocationRepository) SetStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&locationDatamodel.Location{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *LocationRepository) CountActiveChildren(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&locationDatamodel.Location{}).
		Where("parent_id = ? AND status = ?", id, string(location.StatusActive)).
		Count(&count).Error
	return count, err
}

func (r *LocationRepository) CountReferences(ctx context.Context, id int64) (int64, error) {
	var total int64
	for _, table := range []string{"users", "leave_requests", "timesheets", "workflow_templates"} {
		var n int64
		q := r.db.WithContext(ctx).Table(table).Where("location_id = ?", id)
		if table == "users" {
			q = q.Where("deleted_at IS NULL")
		}
		if err := q.Count(&n).Error; err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (r *LocationRepository) Reparent(ctx context.Context, id int64, parentID *int64, oldPath, newPath string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&locationDatamodel.Location{}).
			Where("id = ?", id).
			Update("parent_id", parentID).Error; err != nil {
			return err
		}
		// one statement rewrites the prefix of every path in the subtree
		return tx.Exec(
			"UPDATE locations SET path = ? || substr(path, ?) WHERE path LIKE ?",
			newPath, len(oldPath)+1, oldPath+"%",
		).Error
	})
}
