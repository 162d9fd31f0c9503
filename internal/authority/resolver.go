package authority

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Reason string

const (
	ReasonUserInactive      Reason = "user inactive"
	ReasonRoleScope         Reason = "role/scope"
	ReasonDelegation        Reason = "delegation"
	ReasonStepNotCurrent    Reason = "step is not current"
	ReasonNotEligible       Reason = "not eligible for this step"
	ReasonDelegationExpired Reason = "delegation expired"
	ReasonNoMatchingGrant   Reason = "no matching grant"
	ReasonUnknownPermission Reason = "unknown permission"
)

// Decision is the outcome of an authority check. DelegationID and
// DelegatorID are set when the grant was borrowed.
type Decision struct {
	Authorized   bool   `json:"authorized"`
	Reason       Reason `json:"reason"`
	DelegationID *int64 `json:"delegation_id,omitempty"`
	DelegatorID  *int64 `json:"delegator_id,omitempty"`
}

func allow(reason Reason) Decision { return Decision{Authorized: true, Reason: reason} }
func deny(reason Reason) Decision  { return Decision{Authorized: false, Reason: reason} }

// WorkflowContext pins a check to one step of a running workflow instance.
type WorkflowContext struct {
	InstanceID int64
	StepOrder  int
}

// StepGate answers the workflow-specific part of a check: whether the step is
// the instance's current one and which of the given users may act on it.
type StepGate interface {
	EligibleActors(ctx context.Context, wc WorkflowContext, userIDs []int64) (current bool, eligible []int64, err error)
}

type Option func(*Resolver)

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithStepGate(gate StepGate) Option {
	return func(r *Resolver) { r.gate = gate }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

type Resolver struct {
	store  Store
	ref    *SnapshotHolder
	gate   StepGate
	now    func() time.Time
	logger *slog.Logger
}

func NewResolver(store Store, ref *SnapshotHolder, opts ...Option) *Resolver {
	r := &Resolver{
		store:  store,
		ref:    ref,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetStepGate installs the workflow gate after construction, since the gate
// itself is usually built from services that depend on this resolver's store.
func (r *Resolver) SetStepGate(gate StepGate) {
	r.gate = gate
}

// CheckAuthority decides whether userID may exercise permission at
// locationID. A nil locationID only matches global grants. With a workflow
// context the grant must also make the user (or the delegator it was
// borrowed from) eligible for the instance's current step.
func (r *Resolver) CheckAuthority(ctx context.Context, userID int64, permission string, locationID *int64, wc *WorkflowContext) (Decision, error) {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("load user %d: %w", userID, err)
	}
	if user == nil || !user.Active {
		return deny(ReasonUserInactive), nil
	}

	perm, ok := r.ref.Current().Permission(permission)
	if !ok {
		return deny(ReasonUnknownPermission), nil
	}

	targetPath := ""
	if locationID != nil {
		targetPath, err = r.store.LocationPath(ctx, *locationID)
		if err != nil {
			return Decision{}, fmt.Errorf("load location %d: %w", *locationID, err)
		}
		if targetPath == "" {
			return deny(ReasonNoMatchingGrant), nil
		}
	}

	now := r.now()
	direct, err := HasDirectGrant(ctx, r.store, r.ref.Current(), userID, perm.ID, targetPath, now)
	if err != nil {
		return Decision{}, err
	}

	borrowed, sawExpired, err := r.matchingDelegations(ctx, userID, perm.ID, targetPath, now)
	if err != nil {
		return Decision{}, err
	}

	if !direct && len(borrowed) == 0 {
		if sawExpired {
			return deny(ReasonDelegationExpired), nil
		}
		return deny(ReasonNoMatchingGrant), nil
	}

	if wc == nil {
		if direct {
			return allow(ReasonRoleScope), nil
		}
		return borrowedDecision(borrowed[0]), nil
	}

	return r.gateDecision(ctx, *wc, userID, direct, borrowed)
}

func (r *Resolver) matchingDelegations(ctx context.Context, userID, permissionID int64, targetPath string, now time.Time) ([]Delegation, bool, error) {
	delegations, err := r.store.ActiveDelegations(ctx, userID, permissionID)
	if err != nil {
		return nil, false, fmt.Errorf("load delegations for %d: %w", userID, err)
	}
	var matched []Delegation
	sawExpired := false
	for _, d := range delegations {
		if d.Status != DelegationActive || !d.Reach.Covers(targetPath) {
			continue
		}
		if !d.Window.Covers(now) {
			if d.Window.Until != nil && !now.Before(*d.Window.Until) {
				sawExpired = true
			}
			continue
		}
		matched = append(matched, d)
	}
	return matched, sawExpired, nil
}

func (r *Resolver) gateDecision(ctx context.Context, wc WorkflowContext, userID int64, direct bool, borrowed []Delegation) (Decision, error) {
	if r.gate == nil {
		return Decision{}, fmt.Errorf("workflow context given but no step gate configured")
	}

	actors := []int64{userID}
	for _, d := range borrowed {
		actors = append(actors, d.DelegatorID)
	}

	current, eligible, err := r.gate.EligibleActors(ctx, wc, actors)
	if err != nil {
		return Decision{}, err
	}
	if !current {
		return deny(ReasonStepNotCurrent), nil
	}

	set := make(map[int64]struct{}, len(eligible))
	for _, id := range eligible {
		set[id] = struct{}{}
	}

	if _, ok := set[userID]; ok {
		if direct {
			return allow(ReasonRoleScope), nil
		}
		return borrowedDecision(borrowed[0]), nil
	}
	for _, d := range borrowed {
		if _, ok := set[d.DelegatorID]; ok {
			return borrowedDecision(d), nil
		}
	}

	r.logger.Debug("authority check: not eligible for step",
		"user_id", userID, "instance_id", wc.InstanceID, "step_order", wc.StepOrder)
	return deny(ReasonNotEligible), nil
}

func borrowedDecision(d Delegation) Decision {
	id, delegator := d.ID, d.DelegatorID
	return Decision{Authorized: true, Reason: ReasonDelegation, DelegationID: &id, DelegatorID: &delegator}
}

// HasDirectGrant reports whether the user holds the permission through an
// active role and a matching, currently valid scope row. Delegations are
// never consulted, which keeps delegation non-transitive.
func HasDirectGrant(ctx context.Context, store Store, snap *Snapshot, userID, permissionID int64, targetPath string, now time.Time) (bool, error) {
	assignments, err := store.ActiveRoleAssignments(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load role assignments for %d: %w", userID, err)
	}

	holdsRole := false
	for _, a := range assignments {
		if snap.RoleGrants(a.RoleID, permissionID) {
			holdsRole = true
			break
		}
	}
	if !holdsRole {
		return false, nil
	}

	grants, err := store.ActiveGrants(ctx, userID, permissionID)
	if err != nil {
		return false, fmt.Errorf("load permission scopes for %d: %w", userID, err)
	}
	for _, g := range grants {
		if g.Reach.Covers(targetPath) && g.Window.Covers(now) {
			return true, nil
		}
	}
	return false, nil
}
