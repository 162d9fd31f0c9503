package location

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/hr-approval/internal"
	locationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/location"
)

type RepositoryAPI interface {
	PathReader
	List(ctx context.Context, activeOnly bool) ([]*locationDatamodel.Location, error)
	// Create inserts loc and stores its path derived from parentPath and the new id.
	Create(ctx context.Context, loc *locationDatamodel.Location, parentPath string) error
	SetStatus(ctx context.Context, id int64, status string) error
	CountActiveChildren(ctx context.Context, id int64) (int64, error)
	CountReferences(ctx context.Context, id int64) (int64, error)
	// Reparent moves id under parentID and rewrites the oldPath prefix of the
	// whole subtree to newPath.
	Reparent(ctx context.Context, id int64, parentID *int64, oldPath, newPath string) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*Location, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		s.logger.Error("failed to list locations", "error", err)
		return nil, err
	}
	out := make([]*Location, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Location, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("location %d not found", id), errors.ErrCodeLocationNotFound)
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(ctx context.Context, dto CreateLocationDTO) (*Location, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	parentPath := ""
	if dto.ParentID != nil {
		parent, err := s.GetByID(ctx, *dto.ParentID)
		if err != nil {
			return nil, err
		}
		if !parent.IsActive() {
			return nil, errors.NewValidationFieldError("parent_id", "parent location is inactive", errors.ErrCodeValidationFailed)
		}
		parentPath = parent.Path
	}

	row := &locationDatamodel.Location{
		Name:     dto.Name,
		ParentID: dto.ParentID,
		Status:   string(StatusActive),
	}
	if err := s.repo.Create(ctx, row, parentPath); err != nil {
		s.logger.Error("failed to create location", "error", err, "name", dto.Name)
		return nil, err
	}

	s.logger.Info("location created", "location_id", row.ID, "path", row.Path)
	return FromDataModel(row), nil
}

// Deactivate flips the status to inactive. Locations are never hard-deleted
// and cannot be retired while active children or users still point at them.
func (s *Service) Deactivate(ctx context.Context, id int64) (*Location, error) {
	loc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !loc.IsActive() {
		return loc, nil
	}

	children, err := s.repo.CountActiveChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	if children > 0 {
		return nil, errors.NewConflictError("location has active child locations", errors.ErrCodeLocationInUse)
	}

	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return nil, err
	}
	if refs > 0 {
		return nil, errors.NewConflictError("location is referenced by users or resources", errors.ErrCodeLocationInUse)
	}

	if err := s.repo.SetStatus(ctx, id, string(StatusInactive)); err != nil {
		s.logger.Error("failed to deactivate location", "error", err, "location_id", id)
		return nil, err
	}

	s.logger.Info("location deactivated", "location_id", id)
	loc.Status = StatusInactive
	return loc, nil
}

// Move re-parents id. Moving a node under itself or one of its descendants
// is rejected since it would create a cycle.
func (s *Service) Move(ctx context.Context, id int64, dto MoveLocationDTO) (*Location, error) {
	loc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	parentPath := ""
	if dto.ParentID != nil {
		parent, err := s.GetByID(ctx, *dto.ParentID)
		if err != nil {
			return nil, err
		}
		if PathContains(loc.Path, parent.Path) {
			return nil, errors.NewValidationError("location cannot be moved below itself", errors.ErrCodeLocationCycle)
		}
		if !parent.IsActive() {
			return nil, errors.NewValidationFieldError("parent_id", "parent location is inactive", errors.ErrCodeValidationFailed)
		}
		parentPath = parent.Path
	}

	newPath := BuildPath(parentPath, id)
	if newPath == loc.Path {
		return loc, nil
	}

	if err := s.repo.Reparent(ctx, id, dto.ParentID, loc.Path, newPath); err != nil {
		s.logger.Error("failed to move location", "error", err, "location_id", id)
		return nil, err
	}

	s.logger.Info("location moved", "location_id", id, "old_path", loc.Path, "new_path", newPath)
	loc.ParentID = dto.ParentID
	loc.Path = newPath
	return loc, nil
}
