package workflow

import (
	"context"

	"github.com/frahmantamala/hr-approval/internal/audit"
	"github.com/frahmantamala/hr-approval/internal/notification"
	"github.com/frahmantamala/hr-approval/internal/resource"
)

type TemplateFilter struct {
	ResourceType *resource.Type
	LocationID   *int64
	Status       *TemplateStatus
}

type TemplateRepository interface {
	// GetByID returns nil when the template does not exist.
	GetByID(ctx context.Context, id int64) (*Template, error)
	List(ctx context.Context, filter TemplateFilter) ([]*Template, error)
	// ActiveFor returns active templates of resourceType anchored at any of locationIDs.
	ActiveFor(ctx context.Context, resourceType resource.Type, locationIDs []int64) ([]*Template, error)
	// Create inserts t with its steps. An active template with the same
	// resource type, location and filters is deprecated and t takes the next version.
	Create(ctx context.Context, t *Template) error
	SetStatus(ctx context.Context, id int64, status TemplateStatus) error
}

// InstanceStore is the write side of instances, bound to one transaction.
type InstanceStore interface {
	Create(ctx context.Context, inst *Instance) error
	FindOpen(ctx context.Context, resourceType resource.Type, resourceID int64) (*Instance, error)
	// CompleteStep moves a pending step row to its final status. It fails with
	// a state conflict when the row is no longer pending.
	CompleteStep(ctx context.Context, step *StepInstance) error
	AppendSteps(ctx context.Context, steps []*StepInstance) error
	UpdateState(ctx context.Context, inst *Instance) error
}

// UnitOfWork groups everything a transition writes so it commits or rolls
// back as one.
type UnitOfWork interface {
	Instances() InstanceStore
	Audit() audit.Sink
	Notifier() notification.Sink
	Resources() resource.StatusSyncer
}

type InstanceRepository interface {
	// Get returns nil when the instance does not exist.
	Get(ctx context.Context, id int64) (*Instance, error)
	FindOpen(ctx context.Context, resourceType resource.Type, resourceID int64) (*Instance, error)
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
	// WithinInstance locks the instance row for the life of the transaction
	// and hands fn its state as read under the lock.
	WithinInstance(ctx context.Context, id int64, fn func(uow UnitOfWork, locked *Instance) error) error
}
