package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeWorkflowSubmitted    = "workflow.submitted"
	EventTypeWorkflowStepApproved = "workflow.step_approved"
	EventTypeWorkflowApproved     = "workflow.approved"
	EventTypeWorkflowDeclined     = "workflow.declined"
	EventTypeWorkflowRouted       = "workflow.routed_back"
	EventTypeWorkflowReturned     = "workflow.returned_to_owner"
	EventTypeDelegationCreated    = "delegation.created"
	EventTypeDelegationRevoked    = "delegation.revoked"
)

// WorkflowTransitionEvent is published after a workflow transition commits.
type WorkflowTransitionEvent struct {
	BaseEvent
	InstanceID   int64   `json:"instance_id"`
	ResourceType string  `json:"resource_type"`
	ResourceID   int64   `json:"resource_id"`
	ActorID      int64   `json:"actor_id"`
	StepOrder    int     `json:"step_order"`
	Status       string  `json:"status"`
	Recipients   []int64 `json:"recipients"`
}

func NewWorkflowTransitionEvent(eventType string, instanceID int64, resourceType string, resourceID, actorID int64, stepOrder int, status string, recipients []int64) *WorkflowTransitionEvent {
	return &WorkflowTransitionEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"instance_id":   instanceID,
				"resource_type": resourceType,
				"resource_id":   resourceID,
				"actor_id":      actorID,
				"step_order":    stepOrder,
				"status":        status,
				"recipients":    recipients,
			},
		},
		InstanceID:   instanceID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ActorID:      actorID,
		StepOrder:    stepOrder,
		Status:       status,
		Recipients:   recipients,
	}
}

type DelegationEvent struct {
	BaseEvent
	DelegationID int64 `json:"delegation_id"`
	DelegatorID  int64 `json:"delegator_id"`
	DelegateID   int64 `json:"delegate_id"`
}

func NewDelegationEvent(eventType string, delegationID, delegatorID, delegateID int64) *DelegationEvent {
	return &DelegationEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"delegation_id": delegationID,
				"delegator_id":  delegatorID,
				"delegate_id":   delegateID,
			},
		},
		DelegationID: delegationID,
		DelegatorID:  delegatorID,
		DelegateID:   delegateID,
	}
}
