package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"postforge/internal/daemon"
	"postforge/internal/logging"
	"postforge/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd, ctx)
		},
	}
}

func runServe(cmdCtx context.Context, cmd *cobra.Command, ctx *commandContext) error {
	signalCtx, cancel := interruptContext(cmdCtx)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if removed := logging.PruneLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, timeNow()); removed > 0 {
		logger.Info("pruned old log files", logging.Int("removed", removed))
	}

	return ctx.withManager(signalCtx, logger, func(mgr *workflow.Manager) error {
		d, err := daemon.New(cfg, mgr, logger)
		if err != nil {
			return fmt.Errorf("create daemon: %w", err)
		}
		defer d.Stop()

		if err := d.Start(signalCtx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "postforge listening on http://%s\n", d.Addr())
		<-signalCtx.Done()
		logger.Info("shutdown requested", logging.String(logging.FieldEventType, "daemon_stopping"))
		return nil
	})
}
