package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"postforge/internal/archive"
	"postforge/internal/cms"
	"postforge/internal/enhance"
	"postforge/internal/logging"
	"postforge/internal/queue"
	"postforge/internal/services"
)

// processItem drives one work item through fetch, archive, the stage chain,
// update and mark. The returned outcome is terminal for this run.
func (m *Manager) processItem(ctx context.Context, item *queue.WorkItem) itemOutcome {
	itemCtx := withItemContext(ctx, item)
	if budget := m.cfg.ItemTimeout(); budget > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(itemCtx, budget)
		defer cancel()
	}
	logger := m.itemLogger(itemCtx)

	item.Status = queue.StatusProcessing
	started := time.Now()
	logger.Info("item started",
		logging.String(logging.FieldEventType, "item_start"),
		logging.String("keyword", item.Keyword),
		logging.Int("position", item.Position),
	)

	doc, err := m.fetchDocument(itemCtx, item)
	if err != nil {
		return m.handleItemFailure(itemCtx, item, "", err)
	}

	if _, err := m.storeSnapshot(itemCtx, logger, archive.Snapshot{
		DocumentID: doc.ID,
		Stage:      archive.StageOriginal,
		Content:    doc.Content,
		Attributes: snapshotAttributes(item, map[string]string{
			"title":            doc.Title,
			"meta_title":       doc.MetaTitle,
			"meta_description": doc.MetaDescription,
		}),
	}); err != nil {
		return m.handleItemFailure(itemCtx, item, archive.StageOriginal, err)
	}

	result, err := m.engine.Enhance(itemCtx, enhance.Input{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Content:    doc.Content,
		Keyword:    item.Keyword,
		SEOTitle:   item.SEOTitle,
	}, m.archiveObserver(item, doc.ID))
	if err != nil {
		stage, _ := enhance.FailedStage(err)
		return m.handleItemFailure(itemCtx, item, stage, err)
	}

	if err := m.updateDocument(itemCtx, doc.ID, result); err != nil {
		return m.handleItemFailure(itemCtx, item, "", err)
	}
	logger.Info("document updated",
		logging.String(logging.FieldEventType, "document_updated"),
		logging.Int("content_bytes", len(result.Content)),
		logging.Bool("meta_title", result.MetaTitle != ""),
		logging.Bool("meta_description", result.MetaDescription != ""),
	)

	item.Status = queue.StatusDone
	outcome := itemOutcome{}
	if err := m.markProcessed(itemCtx, item); err != nil {
		logging.WarnWithContext(logger, "mark processed failed after document update", "queue_mark_failed",
			logging.String(logging.FieldReason, services.Reason(err)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "mark the row processed by hand or the next run will rewrite the post again"),
			logging.String(logging.FieldImpact, "the post stays pending in the queue"),
		)
		outcome.warning = fmt.Sprintf("post %s updated but not marked processed: %v", item.ID, err)
	}

	logger.Info("item completed",
		logging.String(logging.FieldEventType, "item_complete"),
		logging.Int("stages", len(result.Stages)),
		logging.Duration("item_duration", time.Since(started)),
	)
	return outcome
}

// abandonItem records an item the run never started because the batch
// context ended.
func (m *Manager) abandonItem(item *queue.WorkItem, cause error) ItemFailure {
	item.Status = queue.StatusFailed
	return ItemFailure{
		ID:      item.ID,
		Reason:  services.Reason(cause),
		Message: "batch stopped before the item started: " + cause.Error(),
	}
}

func (m *Manager) fetchDocument(ctx context.Context, item *queue.WorkItem) (cms.Document, error) {
	callCtx, cancel := m.callContext(ctx)
	defer cancel()
	doc, err := m.adapters.Documents.Fetch(callCtx, item.ID)
	if err != nil {
		return cms.Document{}, err
	}
	if doc.ID == "" {
		doc.ID = item.ID
	}
	return doc, nil
}

func (m *Manager) archiveObserver(item *queue.WorkItem, documentID string) enhance.Observer {
	return func(ctx context.Context, out enhance.StageOutput) error {
		stageCtx := services.WithStage(ctx, out.Stage)
		logger := m.itemLogger(stageCtx)
		location, err := m.storeSnapshot(stageCtx, logger, archive.Snapshot{
			DocumentID: documentID,
			Stage:      out.Stage,
			Content:    out.Content,
			Attributes: snapshotAttributes(item, map[string]string{
				"model":            out.Model,
				"finish_reason":    out.FinishReason,
				"meta_title":       out.MetaTitle,
				"meta_description": out.MetaDescription,
			}),
		})
		if err != nil {
			return err
		}
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("model", out.Model),
			logging.String("snapshot", location),
			logging.Int("content_bytes", len(out.Content)),
			logging.Duration("stage_duration", out.Duration),
		)
		return nil
	}
}

func (m *Manager) storeSnapshot(ctx context.Context, logger *slog.Logger, snap archive.Snapshot) (string, error) {
	callCtx, cancel := m.callContext(ctx)
	defer cancel()
	snap.CapturedAt = m.now().UTC()
	location, err := m.adapters.Archive.Store(callCtx, snap)
	if err != nil {
		if errors.Is(err, services.ErrArchive) || errors.Is(err, services.ErrAdapterConnection) {
			return "", err
		}
		return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "", err)
	}
	logger.Debug("snapshot archived",
		logging.String(logging.FieldEventType, "snapshot_archived"),
		logging.String("snapshot_stage", snap.Stage),
		logging.String("location", location),
	)
	return location, nil
}

func (m *Manager) updateDocument(ctx context.Context, documentID string, result enhance.Result) error {
	callCtx, cancel := m.callContext(ctx)
	defer cancel()
	err := m.adapters.Documents.Update(callCtx, documentID, cms.Fields{
		Content:         result.Content,
		MetaTitle:       result.MetaTitle,
		MetaDescription: result.MetaDescription,
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrDocumentUpdate) || errors.Is(err, services.ErrAdapterConnection) {
		return err
	}
	return services.Wrap(services.ErrDocumentUpdate, "", "update document", documentID, err)
}

// markProcessed runs detached from cancellation: once the document is updated
// the queue must learn about it even if the batch is stopping.
func (m *Manager) markProcessed(ctx context.Context, item *queue.WorkItem) error {
	callCtx, cancel := m.callContext(context.WithoutCancel(ctx))
	defer cancel()
	err := m.adapters.Queue.MarkProcessed(callCtx, *item)
	if err == nil || errors.Is(err, services.ErrQueueUpdate) {
		return err
	}
	return services.Wrap(services.ErrQueueUpdate, "", "mark processed", item.Label(), err)
}

// callContext bounds one external call by the configured call timeout.
func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := m.cfg.CallTimeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func snapshotAttributes(item *queue.WorkItem, extra map[string]string) map[string]string {
	attrs := map[string]string{"keyword": item.Keyword}
	if item.SEOTitle != "" {
		attrs["seo_title"] = item.SEOTitle
	}
	for key, value := range extra {
		if value = strings.TrimSpace(value); value != "" {
			attrs[key] = value
		}
	}
	return attrs
}
