package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/frahmantamala/hr-approval/internal/audit"
	auditDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/audit"
)

const defaultListLimit = 100

type Recorder struct {
	db *gorm.DB
}

// NewRecorder writes through db, which may be a transaction handle.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) Record(ctx context.Context, entry audit.Entry) error {
	before, err := toJSON(entry.Before)
	if err != nil {
		return fmt.Errorf("marshal before state: %w", err)
	}
	after, err := toJSON(entry.After)
	if err != nil {
		return fmt.Errorf("marshal after state: %w", err)
	}
	auditCtx, err := toJSON(entry.Context)
	if err != nil {
		return fmt.Errorf("marshal audit context: %w", err)
	}

	return r.db.WithContext(ctx).Create(&auditDatamodel.AuditLog{
		ActorID:      entry.ActorID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Before:       before,
		After:        after,
		Context:      auditCtx,
		SourceIP:     entry.SourceIP,
	}).Error
}

func (r *Recorder) List(ctx context.Context, filter audit.Filter) ([]*audit.Log, error) {
	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	q := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if filter.ResourceType != "" {
		q = q.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != 0 {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}

	var rows []*auditDatamodel.AuditLog
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*audit.Log, 0, len(rows))
	for _, row := range rows {
		out = append(out, audit.FromDataModel(row))
	}
	return out, nil
}

func toJSON(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
