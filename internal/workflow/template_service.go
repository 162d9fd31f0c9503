package workflow

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/approver"
	"github.com/frahmantamala/hr-approval/internal/authority"
)

// LocationPaths is satisfied by location.Hierarchy.
type LocationPaths interface {
	Path(ctx context.Context, id int64) (string, error)
}

type TemplateService struct {
	repo      TemplateRepository
	ref       *authority.SnapshotHolder
	locations LocationPaths
	approvers ApproverResolver
	logger    *slog.Logger
}

func NewTemplateService(repo TemplateRepository, ref *authority.SnapshotHolder, locations LocationPaths, approvers ApproverResolver, logger *slog.Logger) *TemplateService {
	return &TemplateService{
		repo:      repo,
		ref:       ref,
		locations: locations,
		approvers: approvers,
		logger:    logger,
	}
}

// Create validates and stores a template. A previous active template for
// the same resource type, location and filters is superseded.
func (s *TemplateService) Create(ctx context.Context, createdBy int64, dto CreateTemplateDTO) (*Template, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	if _, err := s.locations.Path(ctx, dto.LocationID); err != nil {
		return nil, err
	}

	snap := s.ref.Current()
	for i, step := range dto.Steps {
		if err := checkStepReferences(snap, fmt.Sprintf("steps[%d]", i), step); err != nil {
			return nil, err
		}
	}

	t, err := dto.ToTemplate(createdBy)
	if err != nil {
		return nil, errors.NewValidationError(err.Error(), errors.ErrCodeInvalidTemplate)
	}
	if err := s.repo.Create(ctx, t); err != nil {
		s.logger.Error("failed to create workflow template", "name", dto.Name, "error", err)
		return nil, err
	}

	s.logger.Info("workflow template created",
		"template_id", t.ID,
		"resource_type", t.ResourceType,
		"location_id", t.LocationID,
		"version", t.Version,
		"steps", len(t.Steps))
	return t, nil
}

func checkStepReferences(snap *authority.Snapshot, field string, step StepDTO) *errors.AppError {
	perm, ok := snap.Permission(step.RequiredPermission)
	if !ok {
		return errors.NewValidationFieldError(field+".required_permission",
			fmt.Sprintf("permission %q does not exist", step.RequiredPermission), errors.ErrCodePermissionNotFound)
	}

	if step.ApproverStrategy != "role" && step.ApproverStrategy != "combined" {
		return nil
	}
	if len(step.RequiredRoles) == 0 {
		return errors.NewValidationFieldError(field+".required_roles",
			fmt.Sprintf("%s strategy needs at least one role", step.ApproverStrategy), errors.ErrCodeInvalidTemplate)
	}
	granting := false
	for _, id := range step.RequiredRoles {
		if _, ok := snap.Role(id); !ok {
			return errors.NewValidationFieldError(field+".required_roles",
				fmt.Sprintf("role %d does not exist", id), errors.ErrCodeInvalidTemplate)
		}
		if snap.RoleGrants(id, perm.ID) {
			granting = true
		}
	}
	if !granting {
		return errors.NewValidationFieldError(field+".required_roles",
			fmt.Sprintf("none of the roles grants %s", step.RequiredPermission), errors.ErrCodeInvalidTemplate)
	}
	return nil
}

func (s *TemplateService) Get(ctx context.Context, id int64) (*Template, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load workflow template", "template_id", id, "error", err)
		return nil, err
	}
	if t == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("workflow template %d not found", id), errors.ErrCodeTemplateNotFound)
	}
	return t, nil
}

func (s *TemplateService) List(ctx context.Context, filter TemplateFilter) ([]*Template, error) {
	return s.repo.List(ctx, filter)
}

// Deactivate stops a template from being selected. Running instances keep
// their step snapshots and are not affected.
func (s *TemplateService) Deactivate(ctx context.Context, id int64) (*Template, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != TemplateActive {
		return nil, errors.NewStateConflict(fmt.Sprintf("workflow template %d is %s", id, t.Status))
	}
	if err := s.repo.SetStatus(ctx, id, TemplateInactive); err != nil {
		s.logger.Error("failed to deactivate workflow template", "template_id", id, "error", err)
		return nil, err
	}
	t.Status = TemplateInactive
	s.logger.Info("workflow template deactivated", "template_id", id)
	return t, nil
}

// Preview resolves every step of a template for a hypothetical submission,
// so steps nobody could approve are found before a resource stalls on them.
func (s *TemplateService) Preview(ctx context.Context, id, locationID, creatorID int64) (*TemplatePreview, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.locations.Path(ctx, locationID); err != nil {
		return nil, err
	}

	out := &TemplatePreview{TemplateID: t.ID, LocationID: locationID, CreatorID: creatorID}
	for _, step := range t.Steps {
		ids, err := s.approvers.Resolve(ctx, approver.Subject{
			StepOrder:  step.Order,
			CreatorID:  creatorID,
			LocationID: &locationID,
		}, step.ApproverConfig())
		if err != nil {
			return nil, err
		}
		out.Steps = append(out.Steps, &StepPreview{
			StepOrder:       step.Order,
			Status:          StepPending,
			Current:         step.Order == 1,
			Approvers:       ids,
			ResolutionEmpty: len(ids) == 0,
		})
	}
	return out, nil
}
