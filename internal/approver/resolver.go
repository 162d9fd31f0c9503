package approver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	errors "github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/authority"
	"github.com/frahmantamala/hr-approval/internal/location"
)

// Subject is what a step is being resolved for.
type Subject struct {
	InstanceID int64
	StepOrder  int
	CreatorID  int64
	LocationID *int64
}

type StepConfig struct {
	RequiredPermission string
	Strategy           Strategy
	Scope              location.Scope
}

// Resolver computes eligible approvers. It only reads, so calls may run
// concurrently and be repeated for previews.
type Resolver struct {
	store  authority.Store
	ref    *authority.SnapshotHolder
	now    func() time.Time
	logger *slog.Logger
}

func NewResolver(store authority.Store, ref *authority.SnapshotHolder, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, ref: ref, now: time.Now, logger: logger}
}

func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

type resolution struct {
	snap         *authority.Snapshot
	permissionID int64
	scope        location.Scope
	subject      Subject
	resourcePath string
	now          time.Time
}

// Resolve returns the distinct user ids eligible for the step, ascending.
// An empty result is valid and means nobody can act on the step.
func (r *Resolver) Resolve(ctx context.Context, subj Subject, cfg StepConfig) ([]int64, error) {
	if cfg.Strategy == nil {
		return nil, fmt.Errorf("step %d has no approver strategy", subj.StepOrder)
	}

	snap := r.ref.Current()
	perm, ok := snap.Permission(cfg.RequiredPermission)
	if !ok {
		return nil, errors.NewValidationError(
			fmt.Sprintf("unknown permission %q", cfg.RequiredPermission), errors.ErrCodePermissionNotFound)
	}

	res := resolution{
		snap:         snap,
		permissionID: perm.ID,
		scope:        cfg.Scope,
		subject:      subj,
		now:          r.now(),
	}
	if subj.LocationID != nil {
		path, err := r.store.LocationPath(ctx, *subj.LocationID)
		if err != nil {
			return nil, fmt.Errorf("load location %d: %w", *subj.LocationID, err)
		}
		res.resourcePath = path
	}

	found := make(map[int64]struct{})
	if err := r.resolve(ctx, cfg.Strategy, res, found); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if len(ids) == 0 {
		r.logger.Warn("approver resolution is empty",
			"instance_id", subj.InstanceID,
			"step_order", subj.StepOrder,
			"strategy", cfg.Strategy.Name(),
			"permission", cfg.RequiredPermission)
	}
	return ids, nil
}

func (r *Resolver) resolve(ctx context.Context, s Strategy, res resolution, found map[int64]struct{}) error {
	switch v := s.(type) {
	case Manager:
		return r.manager(ctx, res, found)
	case Role:
		var granting []int64
		for _, id := range v.RoleIDs {
			if res.snap.RoleGrants(id, res.permissionID) {
				granting = append(granting, id)
			}
		}
		return r.roleHolders(ctx, granting, res, found)
	case Permission:
		return r.roleHolders(ctx, res.snap.RolesGranting(res.permissionID), res, found)
	case Combined:
		for _, part := range v.Strategies {
			if err := r.resolve(ctx, part, res, found); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported approver strategy %T", s)
	}
}

// manager includes the creator's direct manager only when that manager is
// active and holds the permission directly at the resource location.
func (r *Resolver) manager(ctx context.Context, res resolution, found map[int64]struct{}) error {
	creator, err := r.store.GetUser(ctx, res.subject.CreatorID)
	if err != nil {
		return fmt.Errorf("load creator %d: %w", res.subject.CreatorID, err)
	}
	if creator == nil || creator.ManagerID == nil {
		return nil
	}

	mgr, err := r.store.GetUser(ctx, *creator.ManagerID)
	if err != nil {
		return fmt.Errorf("load manager %d: %w", *creator.ManagerID, err)
	}
	if mgr == nil || !mgr.Active {
		return nil
	}

	holds, err := authority.HasDirectGrant(ctx, r.store, res.snap, mgr.ID, res.permissionID, res.resourcePath, res.now)
	if err != nil {
		return err
	}
	if holds {
		found[mgr.ID] = struct{}{}
	}
	return nil
}

func (r *Resolver) roleHolders(ctx context.Context, roleIDs []int64, res resolution, found map[int64]struct{}) error {
	if len(roleIDs) == 0 {
		return nil
	}
	candidates, err := r.store.CandidatesForRoles(ctx, roleIDs)
	if err != nil {
		return fmt.Errorf("load role holders: %w", err)
	}
	for _, c := range candidates {
		if res.scope.Matches(res.resourcePath, c.LocationPath) {
			found[c.UserID] = struct{}{}
		}
	}
	return nil
}
