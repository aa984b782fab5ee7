package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"postforge/internal/config"
	"postforge/internal/logging"
	"postforge/internal/preflight"
	"postforge/internal/workflow"
)

// Daemon serves the HTTP surface and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	workflow *workflow.Manager
	server   *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool

	// mu guards runCtx, cancel and stopping; batches counts in-flight runs.
	mu       sync.Mutex
	runCtx   context.Context
	cancel   context.CancelFunc
	stopping bool
	batches  sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                   `json:"running"`
	PID          int                    `json:"pid"`
	LockFilePath string                 `json:"lock_file"`
	Workflow     workflow.StatusSummary `json:"workflow"`
}

// New constructs a daemon around an initialized workflow manager.
func New(cfg *config.Config, wf *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || wf == nil {
		return nil, errors.New("daemon requires config and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		workflow: wf,
		lockPath: cfg.DaemonLockPath(),
		lock:     flock.New(cfg.DaemonLockPath()),
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, runs preflight checks and begins serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another postforge daemon instance is already running")
	}

	for _, result := range preflight.RunAll(ctx, d.cfg, d.workflow.Adapters()) {
		if result.Passed {
			d.logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported issue; /process answers 503 until adapters are ready"),
			logging.String(logging.FieldImpact, "batch runs may be refused"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.mu.Lock()
	d.runCtx = runCtx
	d.cancel = cancel
	d.stopping = false
	d.mu.Unlock()
	d.running.Store(true)
	d.logger.Info("postforge daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_start"),
	)
	return nil
}

// Stop cancels in-flight batches, stops serving, waits for those batches to
// return and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.mu.Lock()
	d.stopping = true
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.server.stop()
	d.batches.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("postforge daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close stops the daemon and releases the adapters.
func (d *Daemon) Close() error {
	d.Stop()
	return d.workflow.Adapters().Close()
}

// beginBatch returns the context a batch run uses. It keeps the request's
// values but not its cancellation, so a client disconnect cannot abandon an
// item between update and mark; Stop cancels it instead. done must be called
// once the run returns. ok is false while the daemon is stopping.
func (d *Daemon) beginBatch(parent context.Context) (ctx context.Context, done func(), ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopping {
		return nil, nil, false
	}
	base := d.runCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	release := context.AfterFunc(base, cancel)
	d.batches.Add(1)
	return ctx, func() {
		release()
		cancel()
		d.batches.Done()
	}, true
}

// Handler exposes the HTTP routes.
func (d *Daemon) Handler() http.Handler {
	return d.server.handler
}

// Addr returns the address the API server listens on once started.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context, probe bool) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		Workflow:     d.workflow.Status(ctx, probe),
	}
}
