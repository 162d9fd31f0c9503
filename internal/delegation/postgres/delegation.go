package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/hr-approval/internal/authority"
	authorityPostgres "github.com/frahmantamala/hr-approval/internal/authority/postgres"
	delegationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/delegation"
	"github.com/frahmantamala/hr-approval/internal/delegation"
)

type DelegationRepository struct {
	db *gorm.DB
}

func NewDelegationRepository(db *gorm.DB) delegation.RepositoryAPI {
	return &DelegationRepository{db: db}
}

func (r *DelegationRepository) GetByID(ctx context.Context, id int64) (*delegationDatamodel.Delegation, error) {
	var d delegationDatamodel.Delegation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DelegationRepository) List(ctx context.Context, filter delegation.ListFilter) ([]*delegationDatamodel.Delegation, error) {
	q := r.db.WithContext(ctx).Order("valid_from DESC, id DESC")
	if filter.DelegatorID != nil {
		q = q.Where("delegator_user_id = ?", *filter.DelegatorID)
	}
	if filter.DelegateID != nil {
		q = q.Where("delegate_user_id = ?", *filter.DelegateID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var rows []*delegationDatamodel.Delegation
	err := q.Find(&rows).Error
	return rows, err
}

type overlapRow struct {
	delegationDatamodel.Delegation
	LocationPath *string
}

func (r *DelegationRepository) Overlapping(ctx context.Context, delegateID, permissionID int64, from time.Time, until *time.Time) ([]authority.Delegation, error) {
	q := r.db.WithContext(ctx).
		Table("delegations").
		Select("delegations.*, locations.path AS location_path").
		Joins("LEFT JOIN locations ON locations.id = delegations.location_id").
		Where("delegations.delegate_user_id = ? AND delegations.permission_id = ? AND delegations.status = ?",
			delegateID, permissionID, string(authority.DelegationActive)).
		Where("delegations.valid_until IS NULL OR delegations.valid_until > ?", from)
	if until != nil {
		q = q.Where("delegations.valid_from < ?", *until)
	}

	var rows []overlapRow
	if err := q.Order("delegations.id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]authority.Delegation, 0, len(rows))
	for _, row := range rows {
		path := ""
		if row.LocationPath != nil {
			path = *row.LocationPath
		}
		out = append(out, authorityPostgres.DelegationFromRow(&row.Delegation, path))
	}
	return out, nil
}

func (r *DelegationRepository) Create(ctx context.Context, d *delegationDatamodel.Delegation) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DelegationRepository) Revoke(ctx context.Context, id, revokedBy int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&delegationDatamodel.Delegation{}).
		Where("id = ? AND status = ?", id, string(authority.DelegationActive)).
		Updates(map[string]interface{}{
			"status":     string(authority.DelegationRevoked),
			"revoked_at": at,
			"revoked_by": revokedBy,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *DelegationRepository) ExpireElapsed(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&delegationDatamodel.Delegation{}).
		Where("status = ? AND valid_until IS NOT NULL AND valid_until <= ?", string(authority.DelegationActive), now).
		Update("status", string(authority.DelegationExpired))
	return res.RowsAffected, res.Error
}

// WithinKey runs fn in a transaction. On PostgreSQL the key is also held as
// a transaction-scoped advisory lock so that other processes serialize too.
func (r *DelegationRepository) WithinKey(ctx context.Context, key string, fn func(repo delegation.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
				return err
			}
		}
		return fn(&DelegationRepository{db: tx})
	})
}
