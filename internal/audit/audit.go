// Package audit records who changed what, with before and after snapshots.
package audit

import (
	"context"
	"encoding/json"
	"time"

	auditDatamodel "github.com/frahmantamala/hr-approval/internal/core/datamodel/audit"
)

// Entry is one audited change. Before, After and Context are marshalled as JSON.
type Entry struct {
	ActorID      int64
	Action       string
	ResourceType string
	ResourceID   int64
	Before       interface{}
	After        interface{}
	Context      interface{}
	SourceIP     string
}

type Sink interface {
	Record(ctx context.Context, entry Entry) error
}

type Log struct {
	ID           int64           `json:"id"`
	ActorID      int64           `json:"actor_id"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   int64           `json:"resource_id"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
	Context      json.RawMessage `json:"context,omitempty"`
	SourceIP     string          `json:"source_ip,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Filter struct {
	ResourceType string
	ResourceID   int64
	Limit        int
}

func FromDataModel(l *auditDatamodel.AuditLog) *Log {
	return &Log{
		ID:           l.ID,
		ActorID:      l.ActorID,
		Action:       l.Action,
		ResourceType: l.ResourceType,
		ResourceID:   l.ResourceID,
		Before:       json.RawMessage(l.Before),
		After:        json.RawMessage(l.After),
		Context:      json.RawMessage(l.Context),
		SourceIP:     l.SourceIP,
		CreatedAt:    l.CreatedAt,
	}
}

type Reader interface {
	List(ctx context.Context, filter Filter) ([]*Log, error)
}
