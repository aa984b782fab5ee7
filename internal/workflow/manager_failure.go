package workflow

import (
	"context"
	"errors"
	"strings"

	"postforge/internal/enhance"
	"postforge/internal/logging"
	"postforge/internal/queue"
	"postforge/internal/services"
)

func (m *Manager) handleItemFailure(ctx context.Context, item *queue.WorkItem, stageName string, itemErr error) itemOutcome {
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	logger := m.itemLogger(ctx)

	item.Status = queue.StatusFailed
	failure := ItemFailure{
		ID:      item.ID,
		Stage:   stageName,
		Reason:  services.Reason(itemErr),
		Message: failureMessage(stageName, itemErr),
	}

	logger.Error("item failed",
		logging.String("resolved_status", string(queue.StatusFailed)),
		logging.String(logging.FieldReason, failure.Reason),
		logging.String("error_message", failure.Message),
		logging.Alert("item_failure"),
		logging.Error(itemErr),
		logging.String(logging.FieldEventType, "item_failure"),
		logging.String(logging.FieldErrorHint, failureHint(failure.Reason)),
	)

	if recorder, ok := m.adapters.Queue.(queue.FailureRecorder); ok {
		recordCtx, cancel := m.callContext(context.WithoutCancel(ctx))
		err := recorder.RecordFailure(recordCtx, *item, failure.Reason+": "+failure.Message)
		cancel()
		if err != nil {
			logger.Warn("failed to persist item failure", logging.Error(err))
		}
	}

	m.setLastError(itemErr)
	m.notifyItemFailed(ctx, item, failure)
	return itemOutcome{failure: &failure}
}

func failureMessage(stageName string, err error) string {
	if err == nil {
		if stageName != "" {
			return stageName + " failed without error detail"
		}
		return "item failed without error detail"
	}
	var stageErr *enhance.StageError
	if errors.As(err, &stageErr) && stageErr.Err != nil {
		err = stageErr.Err
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "item failed"
	}
	return message
}

func failureHint(reason string) string {
	switch reason {
	case services.ReasonDocumentNotFound:
		return "check the post id in the queue exists in the CMS"
	case services.ReasonEnhancementTruncated:
		return "raise [llm] max_tokens or shorten the source post"
	case services.ReasonEnhancementFormat, services.ReasonEnhancementValidation:
		return "inspect the archived stage snapshots and the finalization prompt"
	case services.ReasonArchive:
		return "check the [archive] backend is writable"
	case services.ReasonDocumentUpdate:
		return "check the CMS user can edit posts"
	case services.ReasonTimeout:
		return "raise [workflow] call_timeout_seconds or item_timeout_seconds"
	case services.ReasonAdapterConnection:
		return "run postforge health to see which adapter is unavailable"
	default:
		return "see the error for details; the item stays pending for the next run"
	}
}
