package workflow

import (
	"context"

	"github.com/frahmantamala/hr-approval/internal/authority"
)

type InstanceReader interface {
	Get(ctx context.Context, id int64) (*Instance, error)
}

// StepGate lets the authority resolver ask which users may act on the
// current step of an instance.
type StepGate struct {
	instances InstanceReader
	approvers ApproverResolver
}

func NewStepGate(instances InstanceReader, approvers ApproverResolver) *StepGate {
	return &StepGate{instances: instances, approvers: approvers}
}

func (g *StepGate) EligibleActors(ctx context.Context, wc authority.WorkflowContext, userIDs []int64) (bool, []int64, error) {
	inst, err := g.instances.Get(ctx, wc.InstanceID)
	if err != nil {
		return false, nil, err
	}
	if inst == nil || !inst.IsOpen() || inst.CurrentStepOrder != wc.StepOrder {
		return false, nil, nil
	}
	step := inst.CurrentStep()
	if step == nil || step.Status != StepPending || step.Config == nil {
		return false, nil, nil
	}

	approvers, err := resolveApprovers(ctx, g.approvers, inst, wc.StepOrder)
	if err != nil {
		return false, nil, err
	}
	set := make(map[int64]struct{}, len(approvers))
	for _, id := range approvers {
		set[id] = struct{}{}
	}

	var eligible []int64
	for _, id := range userIDs {
		if _, ok := set[id]; ok {
			eligible = append(eligible, id)
		}
	}
	return true, eligible, nil
}
