package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"postforge/internal/adapters"
	"postforge/internal/config"
	"postforge/internal/logging"
	"postforge/internal/notifications"
	"postforge/internal/queue"
	"postforge/internal/workflow"
)

// connectAdapters is replaced in tests with a set built from fakes.
var connectAdapters = adapters.Connect

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// commandLogger writes to the dated log file only so table and JSON output
// on stdout stays clean. verbose mirrors records to stderr.
func (c *commandContext) commandLogger(verbose bool) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	outputs := []string{logging.CurrentLogPath(cfg.Paths.LogDir, timeNow())}
	if verbose {
		outputs = append(outputs, "stderr")
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// interruptContext ends when the process receives SIGINT or SIGTERM so a
// batch can stop at the next item boundary and still report its result.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// withManager connects every adapter, builds the stage engine and hands a
// workflow manager to fn. Adapters are closed when fn returns.
func (c *commandContext) withManager(ctx context.Context, logger *slog.Logger, fn func(*workflow.Manager) error) error {
	return c.withAdapters(ctx, logger, func(cfg *config.Config, set *adapters.Set) error {
		engine, err := workflow.NewEngine(cfg, set.Generator, logger)
		if err != nil {
			return fmt.Errorf("build stage engine: %w", err)
		}
		mgr := workflow.NewManagerWithNotifier(cfg, set, engine, logger, notifications.NewService(cfg))
		return fn(mgr)
	})
}

func (c *commandContext) withAdapters(ctx context.Context, logger *slog.Logger, fn func(*config.Config, *adapters.Set) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	set := connectAdapters(ctx, cfg, logger)
	defer set.Close()
	return fn(cfg, set)
}

// withStore opens the SQLite queue database. Queue management commands only
// apply to the sqlite backend; the sheet backend is edited in a spreadsheet.
func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
