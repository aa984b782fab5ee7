package workflow

import (
	"context"
	"log/slog"

	"postforge/internal/logging"
	"postforge/internal/queue"
	"postforge/internal/services"
)

func (m *Manager) itemLogger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, m.logger)
}

// withItemContext tags ctx with the item id. The run's correlation id set by
// RunBatch is kept so every record of a batch shares it.
func withItemContext(ctx context.Context, item *queue.WorkItem) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if item != nil {
		ctx = services.WithItemID(ctx, item.ID)
	}
	return ctx
}
