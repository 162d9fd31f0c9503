package authority

import (
	"context"
	"time"

	"github.com/frahmantamala/hr-approval/internal/location"
)

// User is the slice of a user record the resolvers care about.
type User struct {
	ID           int64
	ManagerID    *int64
	LocationID   *int64
	LocationPath string
	Active       bool
}

type RoleAssignment struct {
	UserID     int64
	RoleID     int64
	LocationID *int64
}

// Candidate is an active user holding a role, placed at the assignment's
// location or, failing that, the user's primary location.
type Candidate struct {
	UserID       int64
	RoleID       int64
	LocationPath string
}

// Window is a validity interval; a nil Until is open ended.
type Window struct {
	From  time.Time
	Until *time.Time
}

// Covers reports whether t lies in [From, Until).
func (w Window) Covers(t time.Time) bool {
	if t.Before(w.From) {
		return false
	}
	return w.Until == nil || t.Before(*w.Until)
}

// Overlaps reports whether the two windows share any instant.
func (w Window) Overlaps(o Window) bool {
	if w.Until != nil && !o.From.Before(*w.Until) {
		return false
	}
	if o.Until != nil && !w.From.Before(*o.Until) {
		return false
	}
	return true
}

// Reach is where a grant or delegation applies: everywhere, or one location
// optionally extended to its descendants.
type Reach struct {
	Global             bool
	LocationID         *int64
	LocationPath       string
	IncludeDescendants bool
}

// Covers reports whether the reach applies to a target path. An empty target
// means no location anchor, which only a global reach satisfies.
func (r Reach) Covers(targetPath string) bool {
	if r.Global {
		return true
	}
	if targetPath == "" || r.LocationPath == "" {
		return false
	}
	if r.LocationPath == targetPath {
		return true
	}
	return r.IncludeDescendants && location.PathContains(r.LocationPath, targetPath)
}

// Compatible reports whether two reaches can apply to a common location.
func (r Reach) Compatible(o Reach) bool {
	if r.Global || o.Global {
		return true
	}
	return r.Covers(o.LocationPath) || o.Covers(r.LocationPath)
}

// Grant is one active permission scope row of a user.
type Grant struct {
	ID           int64
	UserID       int64
	PermissionID int64
	Reach        Reach
	Window       Window
}

type DelegationStatus string

const (
	DelegationActive  DelegationStatus = "active"
	DelegationRevoked DelegationStatus = "revoked"
	DelegationExpired DelegationStatus = "expired"
)

type Delegation struct {
	ID           int64
	DelegatorID  int64
	DelegateID   int64
	PermissionID int64
	Reach        Reach
	Window       Window
	Status       DelegationStatus
}

// Store is the read-only view over users, role assignments, permission
// scopes, delegations and location paths.
type Store interface {
	// GetUser returns nil when the user does not exist or is soft-deleted.
	GetUser(ctx context.Context, id int64) (*User, error)
	ActiveRoleAssignments(ctx context.Context, userID int64) ([]RoleAssignment, error)
	ActiveGrants(ctx context.Context, userID, permissionID int64) ([]Grant, error)
	ActiveDelegations(ctx context.Context, delegateID, permissionID int64) ([]Delegation, error)
	// CandidatesForRoles lists active users with an active assignment to any of roleIDs.
	CandidatesForRoles(ctx context.Context, roleIDs []int64) ([]Candidate, error)
	// LocationPath returns "" for unknown locations.
	LocationPath(ctx context.Context, locationID int64) (string, error)
}
