package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/hr-approval/internal/core/events"
	"github.com/frahmantamala/hr-approval/internal/notification"
	"github.com/frahmantamala/hr-approval/internal/notification/webhook"
	"github.com/frahmantamala/hr-approval/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish workflow events through the in-process bus to exercise notification handlers.`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a workflow transition event",
	Long:  `Publish a synthetic workflow transition event to the notification handlers and wait for delivery.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishTestEvent(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	},
}

var (
	eventInstanceID int64
	eventResource   string
	eventRecipients []int64
	eventWebhookURL string
)

func publishTestEvent(ctx context.Context, eventType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lg := logger.LoggerWrapper()

	eventBus := events.NewEventBus(lg)
	var channel notification.Channel = notification.NewLogChannel(lg)
	if eventWebhookURL != "" {
		hook := webhook.NewChannel(webhook.Config{URL: eventWebhookURL}, lg)
		defer hook.Shutdown()
		channel = hook
	}
	notification.NewEventHandler(channel, lg).RegisterEventHandlers(eventBus)

	event := events.NewWorkflowTransitionEvent(eventType, eventInstanceID, eventResource, 0, 0, 1, "cli", eventRecipients)
	lg.Info("publishing event", "event_type", eventType, "event_id", event.EventID())

	if err := eventBus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	lg.Info("event delivered")
	return nil
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventInstanceID, "instance", 0, "Workflow instance id carried by the event")
	publishEventCmd.Flags().StringVar(&eventResource, "resource-type", "leave", "Resource type carried by the event")
	publishEventCmd.Flags().Int64SliceVar(&eventRecipients, "recipient", nil, "Recipient user ids")
	publishEventCmd.Flags().StringVar(&eventWebhookURL, "webhook", "", "Deliver to this webhook URL instead of the log")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
