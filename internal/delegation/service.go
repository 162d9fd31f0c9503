package delegation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/authority"
	delegationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/delegation"
	"github.com/frahmantamala/hr-approval/internal/core/events"
	"github.com/frahmantamala/hr-approval/pkg/keylock"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*delegationDatamodel.Delegation, error)
	List(ctx context.Context, filter ListFilter) ([]*delegationDatamodel.Delegation, error)
	// Overlapping returns active delegations to delegateID for permissionID
	// whose window intersects [from, until), with their location paths resolved.
	Overlapping(ctx context.Context, delegateID, permissionID int64, from time.Time, until *time.Time) ([]authority.Delegation, error)
	Create(ctx context.Context, d *delegationDatamodel.Delegation) error
	// Revoke flips an active delegation to revoked and reports whether it did.
	Revoke(ctx context.Context, id, revokedBy int64, at time.Time) (bool, error)
	ExpireElapsed(ctx context.Context, now time.Time) (int64, error)
	// WithinKey runs fn in a transaction holding a lock on key for its duration.
	WithinKey(ctx context.Context, key string, fn func(repo RepositoryAPI) error) error
}

// Manager creates and revokes delegations. Overlap detection and insert for
// one (delegate, permission) pair are serialized in-process by the key locker
// and across processes by the repository's transaction lock.
type Manager struct {
	repo      RepositoryAPI
	store     authority.Store
	ref       *authority.SnapshotHolder
	locks     *keylock.Locker
	publisher events.Publisher
	maxWindow time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewManager(repo RepositoryAPI, store authority.Store, ref *authority.SnapshotHolder, locks *keylock.Locker, publisher events.Publisher, maxWindow time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		repo:      repo,
		store:     store,
		ref:       ref,
		locks:     locks,
		publisher: publisher,
		maxWindow: maxWindow,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the time source, mostly for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func lockKey(delegateID, permissionID int64) string {
	return fmt.Sprintf("delegation:%d:%d", delegateID, permissionID)
}

// Create lends one of the delegator's permissions to another user. The
// delegator must hold it directly at the target location right now;
// borrowed permissions cannot be passed on.
func (m *Manager) Create(ctx context.Context, delegatorID int64, dto CreateDelegationDTO) (*Delegation, error) {
	if appErr := dto.Validate(delegatorID, m.maxWindow); appErr != nil {
		m.logger.Warn("delegation validation failed", "error", appErr, "delegator_id", delegatorID)
		return nil, appErr
	}

	snap := m.ref.Current()
	perm, ok := snap.Permission(dto.Permission)
	if !ok {
		return nil, ErrUnknownPermission
	}

	reach := authority.Reach{Global: dto.LocationID == nil, LocationID: dto.LocationID, IncludeDescendants: dto.IncludeDescendants}
	if dto.LocationID != nil {
		path, err := m.store.LocationPath(ctx, *dto.LocationID)
		if err != nil {
			return nil, errors.NewInternalError("failed to load location", err)
		}
		if path == "" {
			return nil, ErrUnknownLocation
		}
		reach.LocationPath = path
	}

	delegate, err := m.store.GetUser(ctx, dto.DelegateID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load delegate", err)
	}
	if delegate == nil || !delegate.Active {
		return nil, ErrDelegateInactive
	}

	delegator, err := m.store.GetUser(ctx, delegatorID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load delegator", err)
	}
	if delegator == nil || !delegator.Active {
		return nil, errors.NewAuthorizationDenied(dto.Permission, string(authority.ReasonUserInactive))
	}

	holds, err := authority.HasDirectGrant(ctx, m.store, snap, delegatorID, perm.ID, reach.LocationPath, m.now())
	if err != nil {
		return nil, errors.NewInternalError("failed to check delegator grant", err)
	}
	if !holds {
		m.logger.Warn("delegator does not hold permission",
			"delegator_id", delegatorID, "permission", dto.Permission, "location_id", dto.LocationID)
		return nil, errors.NewAuthorizationDenied(dto.Permission, string(authority.ReasonNoMatchingGrant))
	}

	key := lockKey(dto.DelegateID, perm.ID)
	unlock, err := m.locks.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	row := &delegationDatamodel.Delegation{
		DelegatorID:        delegatorID,
		DelegateID:         dto.DelegateID,
		PermissionID:       perm.ID,
		LocationID:         dto.LocationID,
		IncludeDescendants: dto.IncludeDescendants,
		ValidFrom:          dto.ValidFrom,
		ValidUntil:         dto.ValidUntil,
		Status:             string(authority.DelegationActive),
		Reason:             dto.Reason,
	}
	window := authority.Window{From: dto.ValidFrom, Until: dto.ValidUntil}

	err = m.repo.WithinKey(ctx, key, func(repo RepositoryAPI) error {
		existing, err := repo.Overlapping(ctx, dto.DelegateID, perm.ID, window.From, window.Until)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.Reach.Compatible(reach) {
				m.logger.Warn("overlapping delegation rejected",
					"delegate_id", dto.DelegateID, "permission", dto.Permission, "existing_id", e.ID)
				return ErrOverlap
			}
		}
		return repo.Create(ctx, row)
	})
	if err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		m.logger.Error("failed to create delegation", "error", err, "delegator_id", delegatorID)
		return nil, errors.NewInternalError("failed to create delegation", err)
	}

	created := FromDataModel(row)
	created.Permission = perm.Name

	m.logger.Info("delegation created",
		"delegation_id", created.ID,
		"delegator_id", delegatorID,
		"delegate_id", created.DelegateID,
		"permission", perm.Name)
	m.publish(ctx, events.NewDelegationEvent(events.EventTypeDelegationCreated, created.ID, delegatorID, created.DelegateID))

	return created, nil
}

// Revoke ends a delegation immediately. Only its delegator may revoke it.
func (m *Manager) Revoke(ctx context.Context, actorID, id int64) (*Delegation, error) {
	row, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to load delegation", err)
	}
	if row == nil {
		return nil, ErrDelegationNotFound
	}
	if row.DelegatorID != actorID {
		m.logger.Warn("revoke by non-delegator rejected", "delegation_id", id, "actor_id", actorID)
		return nil, ErrNotDelegator
	}

	at := m.now()
	revoked, err := m.repo.Revoke(ctx, id, actorID, at)
	if err != nil {
		return nil, errors.NewInternalError("failed to revoke delegation", err)
	}
	if !revoked {
		return nil, ErrNotActive
	}

	d := FromDataModel(row)
	d.Status = authority.DelegationRevoked
	d.RevokedAt = &at
	d.RevokedBy = &actorID
	m.decorate(d)

	m.logger.Info("delegation revoked", "delegation_id", id, "actor_id", actorID)
	m.publish(ctx, events.NewDelegationEvent(events.EventTypeDelegationRevoked, d.ID, d.DelegatorID, d.DelegateID))

	return d, nil
}

func (m *Manager) List(ctx context.Context, filter ListFilter) ([]*Delegation, error) {
	rows, err := m.repo.List(ctx, filter)
	if err != nil {
		m.logger.Error("failed to list delegations", "error", err)
		return nil, errors.NewInternalError("failed to list delegations", err)
	}
	out := make([]*Delegation, 0, len(rows))
	for _, r := range rows {
		d := FromDataModel(r)
		m.decorate(d)
		out = append(out, d)
	}
	return out, nil
}

// ExpireElapsed marks active delegations whose window has ended as expired.
// Authority checks already ignore them; this keeps the stored status honest.
func (m *Manager) ExpireElapsed(ctx context.Context) (int64, error) {
	n, err := m.repo.ExpireElapsed(ctx, m.now())
	if err != nil {
		m.logger.Error("failed to expire delegations", "error", err)
		return 0, err
	}
	if n > 0 {
		m.logger.Info("expired elapsed delegations", "count", n)
	}
	return n, nil
}

func (m *Manager) decorate(d *Delegation) {
	if p, ok := m.ref.Current().PermissionByID(d.PermissionID); ok {
		d.Permission = p.Name
	}
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
