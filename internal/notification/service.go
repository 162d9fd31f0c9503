package notification

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/hr-approval/internal"
	notificationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/notification"
)

type RepositoryAPI interface {
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*notificationDatamodel.Notification, error)
	MarkRead(ctx context.Context, userID, id int64, at time.Time) (bool, error)
}

var ErrNotificationNotFound = errors.NewNotFoundError("Notification not found or already read", errors.ErrCodeResourceNotFound)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*Notification, error) {
	rows, err := s.repo.ListForUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		s.logger.Error("failed to list notifications", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to list notifications", err)
	}
	out := make([]*Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.MarkRead(ctx, userID, id, time.Now())
	if err != nil {
		s.logger.Error("failed to mark notification read", "error", err, "notification_id", id)
		return errors.NewInternalError("failed to update notification", err)
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}
