// Package notification keeps an outbox of user notifications. Rows are
// written in the same transaction as the change that caused them.
package notification

import (
	"context"
	"time"

	notificationDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/notification"
)

const (
	KindApprovalRequested = "approval_requested"
	KindApproved          = "approved"
	KindDeclined          = "declined"
	KindReturned          = "returned"
	KindRoutedBack        = "routed_back"
)

// Message is addressed to one user and points at the resource it concerns.
type Message struct {
	UserID       int64
	Kind         string
	Title        string
	Body         string
	ResourceType string
	ResourceID   int64
}

type Sink interface {
	Notify(ctx context.Context, msg Message) error
}

type Notification struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Kind         string     `json:"kind"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	ResourceType string     `json:"resource_type,omitempty"`
	ResourceID   int64      `json:"resource_id,omitempty"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type NotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
}

func FromDataModel(n *notificationDatamodel.Notification) *Notification {
	return &Notification{
		ID:           n.ID,
		UserID:       n.UserID,
		Kind:         n.Kind,
		Title:        n.Title,
		Message:      n.Message,
		ResourceType: n.ResourceType,
		ResourceID:   n.ResourceID,
		ReadAt:       n.ReadAt,
		CreatedAt:    n.CreatedAt,
	}
}
