// Package resource owns the approvable records (leave requests, timesheets)
// and keeps their denormalized status in step with workflow instances.
package resource

import (
	"context"
	"fmt"
)

type Type string

const (
	TypeLeave     Type = "leave"
	TypeTimesheet Type = "timesheet"
)

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeLeave, TypeTimesheet:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown resource type %q", s)
}

type Status string

const (
	StatusDraft       Status = "draft"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusDeclined    Status = "declined"
)

// Resource is the part of an approvable record the workflow engine reads.
// Attributes feed template filters and conditional step rules.
type Resource struct {
	Type       Type
	ID         int64
	OwnerID    int64
	LocationID int64
	Status     Status
	Attributes map[string]interface{}
}

type StatusSyncer interface {
	SetResourceStatus(ctx context.Context, resourceType Type, resourceID int64, status Status) error
}

type Loader interface {
	// Load returns nil when the record does not exist.
	Load(ctx context.Context, resourceType Type, resourceID int64) (*Resource, error)
}
