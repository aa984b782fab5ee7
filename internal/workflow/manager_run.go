package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"postforge/internal/config"
	"postforge/internal/logging"
	"postforge/internal/queue"
	"postforge/internal/services"
)

// RunBatch processes pending work items one at a time and returns the
// aggregated outcome. Item-level failures are recorded in the result; only
// pre-loop problems (unavailable adapters, a held run lock, an unreadable
// queue) are returned as errors.
func (m *Manager) RunBatch(ctx context.Context, opts RunOptions) (BatchResult, error) {
	if !m.runMu.TryLock() {
		return BatchResult{}, ErrBatchInProgress
	}
	defer m.runMu.Unlock()

	if err := m.adapters.Ready(); err != nil {
		m.setLastError(err)
		m.notifyRunError(ctx, err)
		return BatchResult{}, err
	}

	lock, err := m.acquireRunLock()
	if err != nil {
		m.setLastError(err)
		return BatchResult{}, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("run lock release failed", logging.Error(err))
		}
	}()

	runID := uuid.NewString()
	runCtx := services.WithRequestID(ctx, runID)
	logger := logging.WithContext(runCtx, m.logger)

	m.setRunning(true)
	defer m.setRunning(false)

	items, err := m.selectItems(runCtx, opts)
	if err != nil {
		logger.Error("failed to read queue",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_fetch_failed"),
			logging.String(logging.FieldErrorHint, "check the [queue] backend is reachable"),
		)
		m.setLastError(err)
		m.notifyRunError(runCtx, err)
		return BatchResult{}, err
	}

	result := BatchResult{
		RunID:        runID,
		StartedAt:    m.now().UTC(),
		Total:        len(items),
		SucceededIDs: []string{},
		Failed:       []ItemFailure{},
		Warnings:     []string{},
	}
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("items", len(items)),
	)

	for i := range items {
		item := items[i]
		if err := runCtx.Err(); err != nil {
			result.Failed = append(result.Failed, m.abandonItem(&item, err))
			continue
		}
		outcome := m.processItem(runCtx, &item)
		if outcome.failure != nil {
			result.Failed = append(result.Failed, *outcome.failure)
		} else {
			result.SucceededIDs = append(result.SucceededIDs, item.ID)
		}
		if outcome.warning != "" {
			result.Warnings = append(result.Warnings, outcome.warning)
		}
	}

	result.FinishedAt = m.now().UTC()
	logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("total", result.Total),
		logging.Int("succeeded", len(result.SucceededIDs)),
		logging.Int("failed", len(result.Failed)),
		logging.Int("warnings", len(result.Warnings)),
		logging.Duration("batch_duration", result.Duration()),
	)
	m.setLastResult(result)
	m.notifyBatchCompleted(runCtx, result)
	return result, nil
}

func (m *Manager) acquireRunLock() (*flock.Flock, error) {
	path := m.cfg.RunLockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "run lock", "create state dir", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "run lock", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock %s held)", ErrBatchInProgress, path)
	}
	return lock, nil
}

func (m *Manager) selectItems(ctx context.Context, opts RunOptions) ([]queue.WorkItem, error) {
	selection := strings.ToLower(strings.TrimSpace(opts.Selection))
	if selection == "" {
		selection = m.cfg.Workflow.Selection
	}
	limit := opts.MaxItems
	if limit <= 0 {
		limit = m.cfg.Workflow.MaxItems
	}

	source := m.adapters.Queue
	readCtx, cancel := m.callContext(ctx)
	defer cancel()

	var items []queue.WorkItem
	switch selection {
	case config.SelectNext:
		item, err := source.NextPending(readCtx)
		if err != nil {
			return nil, wrapQueueRead(err)
		}
		if item != nil {
			items = append(items, *item)
		}
	case config.SelectAll, "":
		pending, err := source.ListPending(readCtx)
		if err != nil {
			return nil, wrapQueueRead(err)
		}
		items = pending
	default:
		return nil, services.Wrap(services.ErrValidation, "", "select items", fmt.Sprintf("unknown selection %q (want all or next)", selection), nil)
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	for i := range items {
		items[i].Status = queue.StatusPending
	}
	return items, nil
}

func wrapQueueRead(err error) error {
	if errors.Is(err, services.ErrAdapterConnection) {
		return err
	}
	return fmt.Errorf("read pending work items: %w", err)
}
