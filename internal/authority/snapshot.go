package authority

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
)

type Role struct {
	ID     int64
	Name   string
	Active bool
}

type Permission struct {
	ID          int64
	Name        string
	Module      string
	Description string
}

type RolePermission struct {
	RoleID       int64
	PermissionID int64
}

// Snapshot is an immutable copy of the role and permission reference data.
type Snapshot struct {
	roles         map[int64]Role
	permsByName   map[string]Permission
	permsByID     map[int64]Permission
	rolePerms     map[int64]map[int64]struct{}
	rolesGranting map[int64][]int64
}

func NewSnapshot(roles []Role, permissions []Permission, grants []RolePermission) *Snapshot {
	s := &Snapshot{
		roles:         make(map[int64]Role, len(roles)),
		permsByName:   make(map[string]Permission, len(permissions)),
		permsByID:     make(map[int64]Permission, len(permissions)),
		rolePerms:     make(map[int64]map[int64]struct{}),
		rolesGranting: make(map[int64][]int64),
	}
	for _, r := range roles {
		s.roles[r.ID] = r
	}
	for _, p := range permissions {
		s.permsByName[p.Name] = p
		s.permsByID[p.ID] = p
	}
	for _, g := range grants {
		if _, ok := s.rolePerms[g.RoleID]; !ok {
			s.rolePerms[g.RoleID] = make(map[int64]struct{})
		}
		s.rolePerms[g.RoleID][g.PermissionID] = struct{}{}
	}
	for roleID, perms := range s.rolePerms {
		if !s.roles[roleID].Active {
			continue
		}
		for permID := range perms {
			s.rolesGranting[permID] = append(s.rolesGranting[permID], roleID)
		}
	}
	for permID := range s.rolesGranting {
		sort.Slice(s.rolesGranting[permID], func(i, j int) bool {
			return s.rolesGranting[permID][i] < s.rolesGranting[permID][j]
		})
	}
	return s
}

func (s *Snapshot) Permission(name string) (Permission, bool) {
	p, ok := s.permsByName[name]
	return p, ok
}

func (s *Snapshot) PermissionByID(id int64) (Permission, bool) {
	p, ok := s.permsByID[id]
	return p, ok
}

func (s *Snapshot) Role(id int64) (Role, bool) {
	r, ok := s.roles[id]
	return r, ok
}

// RoleGrants reports whether an active role carries the permission.
func (s *Snapshot) RoleGrants(roleID, permissionID int64) bool {
	if !s.roles[roleID].Active {
		return false
	}
	_, ok := s.rolePerms[roleID][permissionID]
	return ok
}

// RolesGranting returns the active roles carrying the permission, ascending.
func (s *Snapshot) RolesGranting(permissionID int64) []int64 {
	return append([]int64(nil), s.rolesGranting[permissionID]...)
}

type ReferenceLoader interface {
	LoadReference(ctx context.Context) ([]Role, []Permission, []RolePermission, error)
}

// SnapshotHolder hands out the current snapshot and swaps in a fresh one on Reload.
type SnapshotHolder struct {
	current atomic.Pointer[Snapshot]
	loader  ReferenceLoader
}

func NewSnapshotHolder(loader ReferenceLoader) *SnapshotHolder {
	h := &SnapshotHolder{loader: loader}
	h.current.Store(NewSnapshot(nil, nil, nil))
	return h
}

// StaticSnapshot wraps a fixed snapshot, mostly for tests and tooling.
func StaticSnapshot(s *Snapshot) *SnapshotHolder {
	h := &SnapshotHolder{}
	h.current.Store(s)
	return h
}

func (h *SnapshotHolder) Current() *Snapshot {
	return h.current.Load()
}

func (h *SnapshotHolder) Reload(ctx context.Context) error {
	if h.loader == nil {
		return nil
	}
	roles, perms, grants, err := h.loader.LoadReference(ctx)
	if err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}
	h.current.Store(NewSnapshot(roles, perms, grants))
	return nil
}
