package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	notificationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/notification"
	"github.com/frahmantamala/hr-approval/internal/notification"
)

type Outbox struct {
	db *gorm.DB
}

// NewOutbox writes through db, which may be a transaction handle.
func NewOutbox(db *gorm.DB) *Outbox {
	return &Outbox{db: db}
}

func (o *Outbox) Notify(ctx context.Context, msg notification.Message) error {
	return o.db.WithContext(ctx).Create(&notificationDatamodel.Notification{
		UserID:       msg.UserID,
		Kind:         msg.Kind,
		Title:        msg.Title,
		Message:      msg.Body,
		ResourceType: msg.ResourceType,
		ResourceID:   msg.ResourceID,
	}).Error
}

func (o *Outbox) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*notificationDatamodel.Notification, error) {
	q := o.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC")
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []*notificationDatamodel.Notification
	err := q.Find(&rows).Error
	return rows, err
}

// MarkRead stamps a notification owned by userID and reports whether one was updated.
func (o *Outbox) MarkRead(ctx context.Context, userID, id int64, at time.Time) (bool, error) {
	res := o.db.WithContext(ctx).
		Model(&notificationDatamodel.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", at)
	return res.RowsAffected == 1, res.Error
}
