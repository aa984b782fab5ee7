package workflow

import (
	"log/slog"
	"sync"
	"time"

	"postforge/internal/adapters"
	"postforge/internal/config"
	"postforge/internal/enhance"
	"postforge/internal/logging"
	"postforge/internal/notifications"
)

// Manager coordinates batch runs over the adapter set.
type Manager struct {
	cfg      *config.Config
	adapters *adapters.Set
	engine   *enhance.Engine
	logger   *slog.Logger
	notifier notifications.Service
	now      func() time.Time

	runMu sync.Mutex

	mu         sync.RWMutex
	running    bool
	lastErr    error
	lastResult *BatchResult
}

// NewManager constructs a workflow manager publishing to the configured notifier.
func NewManager(cfg *config.Config, set *adapters.Set, engine *enhance.Engine, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, set, engine, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, set *adapters.Set, engine *enhance.Engine, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		adapters: set,
		engine:   engine,
		logger:   logging.NewComponentLogger(logger, "workflow-manager"),
		notifier: notifier,
		now:      time.Now,
	}
}

// Engine returns the enhancement engine the manager drives.
func (m *Manager) Engine() *enhance.Engine {
	return m.engine
}

// Adapters returns the capability set the manager runs against.
func (m *Manager) Adapters() *adapters.Set {
	return m.adapters
}
