package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/hr-approval/internal/core/events"
)

// Channel delivers a committed notification outside the process (mail, chat).
type Channel interface {
	Deliver(ctx context.Context, userID int64, event *events.WorkflowTransitionEvent) error
}

// LogChannel only logs deliveries. It is the default until a real channel is configured.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Deliver(_ context.Context, userID int64, event *events.WorkflowTransitionEvent) error {
	c.logger.Info("notification delivered",
		"user_id", userID,
		"event_type", event.EventType(),
		"instance_id", event.InstanceID,
		"resource_type", event.ResourceType,
		"resource_id", event.ResourceID)
	return nil
}

// EventHandler fans workflow transition events out to a delivery channel.
// The outbox rows already exist by the time the event is published.
type EventHandler struct {
	channel Channel
	logger  *slog.Logger
}

func NewEventHandler(channel Channel, logger *slog.Logger) *EventHandler {
	return &EventHandler{channel: channel, logger: logger}
}

func (h *EventHandler) HandleWorkflowTransition(ctx context.Context, event events.Event) error {
	transition, ok := event.(*events.WorkflowTransitionEvent)
	if !ok {
		h.logger.Error("invalid event type for workflow transition handler", "event_type", event.EventType())
		return fmt.Errorf("expected WorkflowTransitionEvent, got %T", event)
	}

	var failed int
	for _, userID := range transition.Recipients {
		if err := h.channel.Deliver(ctx, userID, transition); err != nil {
			failed++
			h.logger.Error("notification delivery failed",
				"error", err,
				"user_id", userID,
				"instance_id", transition.InstanceID,
				"event_id", transition.EventID())
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d deliveries failed for event %s", failed, len(transition.Recipients), transition.EventID())
	}
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	types := []string{
		events.EventTypeWorkflowSubmitted,
		events.EventTypeWorkflowStepApproved,
		events.EventTypeWorkflowApproved,
		events.EventTypeWorkflowDeclined,
		events.EventTypeWorkflowRouted,
		events.EventTypeWorkflowReturned,
	}
	for _, t := range types {
		eventBus.Subscribe(t, h.HandleWorkflowTransition)
	}
	h.logger.Info("notification event handlers registered", "handlers", types)
}
