package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/hr-approval/internal/authority"
	delegationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/delegation"
	locationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/location"
	userDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/user"
)

const statusActive = "active"

type Store struct {
	db *gorm.DB
}

// NewStore returns the read-only authority views. The same value also serves
// as the reference loader for authority.SnapshotHolder.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var (
	_ authority.Store           = (*Store)(nil)
	_ authority.ReferenceLoader = (*Store)(nil)
)

type userRow struct {
	ID           int64
	ManagerID    *int64
	LocationID   *int64
	Status       string
	LocationPath *string
}

func (s *Store) GetUser(ctx context.Context, id int64) (*authority.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).
		Table("users").
		Select("users.id, users.manager_id, users.location_id, users.status, locations.path AS location_path").
		Joins("LEFT JOIN locations ON locations.id = users.location_id").
		Where("users.id = ? AND users.deleted_at IS NULL", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	u := &authority.User{
		ID:         row.ID,
		ManagerID:  row.ManagerID,
		LocationID: row.LocationID,
		Active:     row.Status == statusActive,
	}
	if row.LocationPath != nil {
		u.LocationPath = *row.LocationPath
	}
	return u, nil
}

func (s *Store) ActiveRoleAssignments(ctx context.Context, userID int64) ([]authority.RoleAssignment, error) {
	var rows []userDatamodel.UserRole
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, statusActive).
		Order("role_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]authority.RoleAssignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, authority.RoleAssignment{UserID: r.UserID, RoleID: r.RoleID, LocationID: r.LocationID})
	}
	return out, nil
}

func pathOf(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

type grantRow struct {
	userDatamodel.UserPermissionScope
	LocationPath *string
}

func (s *Store) ActiveGrants(ctx context.Context, userID, permissionID int64) ([]authority.Grant, error) {
	var rows []grantRow
	err := s.db.WithContext(ctx).
		Table("user_permission_scopes").
		Select("user_permission_scopes.*, locations.path AS location_path").
		Joins("LEFT JOIN locations ON locations.id = user_permission_scopes.location_id").
		Where("user_permission_scopes.user_id = ? AND user_permission_scopes.permission_id = ? AND user_permission_scopes.status = ?",
			userID, permissionID, statusActive).
		Order("user_permission_scopes.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]authority.Grant, 0, len(rows))
	for _, r := range rows {
		out = append(out, authority.Grant{
			ID:           r.ID,
			UserID:       r.UserID,
			PermissionID: r.PermissionID,
			Reach: authority.Reach{
				Global:             r.IsGlobal,
				LocationID:         r.LocationID,
				LocationPath:       pathOf(r.LocationPath),
				IncludeDescendants: r.IncludeDescendants,
			},
			Window: authority.Window{From: r.ValidFrom, Until: r.ValidUntil},
		})
	}
	return out, nil
}

type delegationRow struct {
	delegationDatamodel.Delegation
	LocationPath *string
}

func (s *Store) ActiveDelegations(ctx context.Context, delegateID, permissionID int64) ([]authority.Delegation, error) {
	var rows []delegationRow
	err := s.db.WithContext(ctx).
		Table("delegations").
		Select("delegations.*, locations.path AS location_path").
		Joins("LEFT JOIN locations ON locations.id = delegations.location_id").
		Where("delegations.delegate_user_id = ? AND delegations.permission_id = ? AND delegations.status = ?",
			delegateID, permissionID, string(authority.DelegationActive)).
		Order("delegations.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]authority.Delegation, 0, len(rows))
	for _, r := range rows {
		out = append(out, DelegationFromRow(&r.Delegation, pathOf(r.LocationPath)))
	}
	return out, nil
}

// DelegationFromRow converts a stored delegation; a row without a location is global.
func DelegationFromRow(d *delegationDatamodel.Delegation, locationPath string) authority.Delegation {
	return authority.Delegation{
		ID:           d.ID,
		DelegatorID:  d.DelegatorID,
		DelegateID:   d.DelegateID,
		PermissionID: d.PermissionID,
		Reach: authority.Reach{
			Global:             d.LocationID == nil,
			LocationID:         d.LocationID,
			LocationPath:       locationPath,
			IncludeDescendants: d.IncludeDescendants,
		},
		Window: authority.Window{From: d.ValidFrom, Until: d.ValidUntil},
		Status: authority.DelegationStatus(d.Status),
	}
}

type candidateRow struct {
	UserID         int64
	RoleID         int64
	AssignmentPath *string
	PrimaryPath    *string
}

func (s *Store) CandidatesForRoles(ctx context.Context, roleIDs []int64) ([]authority.Candidate, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	var rows []candidateRow
	err := s.db.WithContext(ctx).
		Table("user_roles").
		Select("user_roles.user_id, user_roles.role_id, al.path AS assignment_path, pl.path AS primary_path").
		Joins("JOIN users ON users.id = user_roles.user_id").
		Joins("LEFT JOIN locations al ON al.id = user_roles.location_id").
		Joins("LEFT JOIN locations pl ON pl.id = users.location_id").
		Where("user_roles.role_id IN ? AND user_roles.status = ?", roleIDs, statusActive).
		Where("users.status = ? AND users.deleted_at IS NULL", statusActive).
		Order("user_roles.user_id ASC, user_roles.role_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]authority.Candidate, 0, len(rows))
	for _, r := range rows {
		c := authority.Candidate{UserID: r.UserID, RoleID: r.RoleID}
		switch {
		case r.AssignmentPath != nil:
			c.LocationPath = *r.AssignmentPath
		case r.PrimaryPath != nil:
			c.LocationPath = *r.PrimaryPath
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) LocationPath(ctx context.Context, locationID int64) (string, error) {
	var loc locationDatamodel.Location
	err := s.db.WithContext(ctx).Select("path").Where("id = ?", locationID).Take(&loc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return loc.Path, nil
}

func (s *Store) LoadReference(ctx context.Context) ([]authority.Role, []authority.Permission, []authority.RolePermission, error) {
	db := s.db.WithContext(ctx)

	var roleRows []userDatamodel.Role
	if err := db.Order("id ASC").Find(&roleRows).Error; err != nil {
		return nil, nil, nil, err
	}
	var permRows []userDatamodel.Permission
	if err := db.Order("id ASC").Find(&permRows).Error; err != nil {
		return nil, nil, nil, err
	}
	var grantRows []userDatamodel.RolePermission
	if err := db.Find(&grantRows).Error; err != nil {
		return nil, nil, nil, err
	}

	roles := make([]authority.Role, 0, len(roleRows))
	for _, r := range roleRows {
		roles = append(roles, authority.Role{ID: r.ID, Name: r.Name, Active: r.Status == statusActive})
	}
	perms := make([]authority.Permission, 0, len(permRows))
	for _, p := range permRows {
		perms = append(perms, authority.Permission{ID: p.ID, Name: p.Name, Module: p.Module, Description: p.Description})
	}
	grants := make([]authority.RolePermission, 0, len(grantRows))
	for _, g := range grantRows {
		grants = append(grants, authority.RolePermission{RoleID: g.RoleID, PermissionID: g.PermissionID})
	}
	return roles, perms, grants, nil
}
