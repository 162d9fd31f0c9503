package user

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/hr-approval/internal"
	userDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/user"
)

type Repository interface {
	// GetByID returns nil for missing or soft-deleted users.
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	ActiveRoles(ctx context.Context, userID int64) ([]*RoleAssignment, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if row == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("user %d not found", userID), errors.ErrCodeUserNotFound)
	}

	u := FromDataModel(row)
	roles, err := s.repo.ActiveRoles(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load user roles", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	if roles != nil {
		u.Roles = roles
	}
	return u, nil
}

// GetVisibleTo returns userID's profile when viewerID is that user or their
// direct manager.
func (s *Service) GetVisibleTo(ctx context.Context, viewerID, userID int64) (*User, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if viewerID == userID || (u.ManagerID != nil && *u.ManagerID == viewerID) {
		return u, nil
	}
	s.logger.Warn("profile view denied", "viewer_id", viewerID, "user_id", userID)
	return nil, errors.NewAuthorizationDenied(PermViewProfile, "not the user or their manager")
}
