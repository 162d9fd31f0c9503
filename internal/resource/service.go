package resource

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/hr-approval/internal"
	resourceDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/resource"
)

type RepositoryAPI interface {
	Loader
	CreateLeaveRequest(ctx context.Context, lr *resourceDatamodel.LeaveRequest) error
	CreateTimesheet(ctx context.Context, ts *resourceDatamodel.Timesheet) error
}

// Service creates drafts. Status changes after that belong to the workflow engine.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateLeaveRequest(ctx context.Context, ownerID int64, dto CreateLeaveRequestDTO) (*Record, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	row := &resourceDatamodel.LeaveRequest{
		UserID:     ownerID,
		LocationID: dto.LocationID,
		LeaveType:  dto.LeaveType,
		StartDate:  dto.StartDate,
		EndDate:    dto.EndDate,
		Days:       dto.Days,
		Reason:     dto.Reason,
		Status:     string(StatusDraft),
	}
	if err := s.repo.CreateLeaveRequest(ctx, row); err != nil {
		s.logger.Error("failed to create leave request", "error", err, "user_id", ownerID)
		return nil, errors.NewInternalError("failed to create leave request", err)
	}
	s.logger.Info("leave request drafted", "resource_id", row.ID, "user_id", ownerID)
	return s.Get(ctx, TypeLeave, row.ID)
}

func (s *Service) CreateTimesheet(ctx context.Context, ownerID int64, dto CreateTimesheetDTO) (*Record, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	row := &resourceDatamodel.Timesheet{
		UserID:      ownerID,
		LocationID:  dto.LocationID,
		PeriodStart: dto.PeriodStart,
		PeriodEnd:   dto.PeriodEnd,
		TotalHours:  dto.TotalHours,
		Status:      string(StatusDraft),
	}
	if err := s.repo.CreateTimesheet(ctx, row); err != nil {
		s.logger.Error("failed to create timesheet", "error", err, "user_id", ownerID)
		return nil, errors.NewInternalError("failed to create timesheet", err)
	}
	s.logger.Info("timesheet drafted", "resource_id", row.ID, "user_id", ownerID)
	return s.Get(ctx, TypeTimesheet, row.ID)
}

func (s *Service) Get(ctx context.Context, resourceType Type, id int64) (*Record, error) {
	r, err := s.repo.Load(ctx, resourceType, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to load resource", err)
	}
	if r == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("%s %d not found", resourceType, id), errors.ErrCodeResourceNotFound)
	}
	return ToRecord(r), nil
}
