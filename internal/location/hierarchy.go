package location

import (
	"context"
	"fmt"

	errors "github.com/frahmantamala/hr-approval/internal"
	locationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/location"
)

// PathReader is the read side the hierarchy needs.
type PathReader interface {
	GetByID(ctx context.Context, id int64) (*locationDatamodel.Location, error)
	ListByPathPrefix(ctx context.Context, prefix string) ([]*locationDatamodel.Location, error)
}

// Hierarchy answers ancestry questions from materialized paths only, so a
// re-parented subtree is handled as soon as its paths are rewritten.
type Hierarchy struct {
	repo PathReader
}

func NewHierarchy(repo PathReader) *Hierarchy {
	return &Hierarchy{repo: repo}
}

// Path returns the materialized path of a location.
func (h *Hierarchy) Path(ctx context.Context, id int64) (string, error) {
	loc, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load location %d: %w", id, err)
	}
	if loc == nil {
		return "", errors.NewNotFoundError(fmt.Sprintf("location %d not found", id), errors.ErrCodeLocationNotFound)
	}
	return loc.Path, nil
}

// IsDescendant reports whether candidateID is ancestorID or lies below it.
func (h *Hierarchy) IsDescendant(ctx context.Context, candidateID, ancestorID int64) (bool, error) {
	candidatePath, err := h.Path(ctx, candidateID)
	if err != nil {
		return false, err
	}
	ancestorPath, err := h.Path(ctx, ancestorID)
	if err != nil {
		return false, err
	}
	return PathContains(ancestorPath, candidatePath), nil
}

// DescendantsOf returns every location strictly below id.
func (h *Hierarchy) DescendantsOf(ctx context.Context, id int64) ([]int64, error) {
	path, err := h.Path(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := h.repo.ListByPathPrefix(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list descendants of %d: %w", id, err)
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if row.ID != id {
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}

// AncestorsOf returns the ancestors of id ordered from the root down,
// excluding id itself.
func (h *Hierarchy) AncestorsOf(ctx context.Context, id int64) ([]int64, error) {
	path, err := h.Path(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids[:len(ids)-1], nil
}
