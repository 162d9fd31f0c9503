package location

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	locationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/location"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

const pathSeparator = "/"

type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Path      string    `json:"path"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *Location) IsActive() bool {
	return l.Status == StatusActive
}

// Depth is the number of ancestors above the location.
func (l *Location) Depth() int {
	ids, err := ParsePath(l.Path)
	if err != nil || len(ids) == 0 {
		return 0
	}
	return len(ids) - 1
}

// BuildPath appends id to parentPath. An empty parentPath makes a root path.
// Paths carry a leading and trailing separator so that a prefix test never
// confuses /1/ with /12/.
func BuildPath(parentPath string, id int64) string {
	if parentPath == "" {
		parentPath = pathSeparator
	}
	return parentPath + strconv.FormatInt(id, 10) + pathSeparator
}

// ParsePath returns the ids of a materialized path, root first.
func ParsePath(path string) ([]int64, error) {
	trimmed := strings.Trim(path, pathSeparator)
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, pathSeparator)
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid path segment %q in %q", p, path)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// PathContains reports whether path is ancestorPath itself or lies below it.
func PathContains(ancestorPath, path string) bool {
	if ancestorPath == "" || path == "" {
		return false
	}
	return strings.HasPrefix(path, ancestorPath)
}

// Scope narrows approver candidates relative to a resource location.
type Scope string

const (
	ScopeSame        Scope = "same"
	ScopeParent      Scope = "parent"
	ScopeDescendants Scope = "descendants"
	ScopeAll         Scope = "all"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeSame, ScopeParent, ScopeDescendants, ScopeAll:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown location scope %q", s)
}

// Matches reports whether a candidate located at candidatePath falls inside
// the scope anchored at resourcePath. parent means strict ancestors,
// descendants includes the resource location itself.
func (s Scope) Matches(resourcePath, candidatePath string) bool {
	switch s {
	case ScopeAll:
		return true
	case ScopeSame:
		return candidatePath != "" && candidatePath == resourcePath
	case ScopeParent:
		return candidatePath != resourcePath && PathContains(candidatePath, resourcePath)
	case ScopeDescendants:
		return PathContains(resourcePath, candidatePath)
	}
	return false
}

func ToDataModel(l *Location) *locationDatamodel.Location {
	return &locationDatamodel.Location{
		ID:        l.ID,
		Name:      l.Name,
		ParentID:  l.ParentID,
		Path:      l.Path,
		Status:    string(l.Status),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func FromDataModel(l *locationDatamodel.Location) *Location {
	return &Location{
		ID:        l.ID,
		Name:      l.Name,
		ParentID:  l.ParentID,
		Path:      l.Path,
		Status:    Status(l.Status),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
