package workflow

import (
	"context"
	"errors"

	"postforge/internal/logging"
	"postforge/internal/notifications"
	"postforge/internal/queue"
)

func (m *Manager) notifyItemFailed(ctx context.Context, item *queue.WorkItem, failure ItemFailure) {
	m.publish(ctx, notifications.EventItemFailed, notifications.Payload{
		"item":    item.Label(),
		"stage":   failure.Stage,
		"reason":  failure.Reason,
		"message": failure.Message,
	})
}

func (m *Manager) notifyBatchCompleted(ctx context.Context, result BatchResult) {
	m.publish(ctx, notifications.EventBatchCompleted, notifications.Payload{
		"total":     result.Total,
		"succeeded": len(result.SucceededIDs),
		"failed":    len(result.Failed),
		"duration":  result.Duration(),
	})
}

func (m *Manager) notifyRunError(ctx context.Context, err error) {
	m.publish(ctx, notifications.EventError, notifications.Payload{
		"context": "batch run",
		"error":   err.Error(),
	})
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logger := m.itemLogger(ctx)
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not send notification", logging.String("event", string(event)))
			return
		}
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
