package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"postforge/internal/config"
	"postforge/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var maxItems int
	var next bool
	var jsonOutput bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process pending work items once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := workflow.RunOptions{MaxItems: maxItems}
			if next {
				opts.Selection = config.SelectNext
			}
			logger, err := ctx.commandLogger(verbose)
			if err != nil {
				return err
			}

			runCtx, stop := interruptContext(cmd.Context())
			defer stop()

			var result workflow.BatchResult
			err = ctx.withManager(runCtx, logger, func(mgr *workflow.Manager) error {
				var runErr error
				result, runErr = mgr.RunBatch(runCtx, opts)
				return runErr
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, result)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderBatchResult(result))
			if len(result.Failed) > 0 {
				return errors.New(strconv.Itoa(len(result.Failed)) + " item(s) failed")
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxItems, "max-items", "n", 0, "Process at most this many items (0 uses the configured limit)")
	cmd.Flags().BoolVar(&next, "next", false, "Process only the next pending item")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the batch result as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Mirror log output to stderr")
	return cmd
}

func renderBatchResult(result workflow.BatchResult) string {
	out := fmt.Sprintf("Run %s: %d of %d succeeded in %s\n",
		result.RunID,
		len(result.SucceededIDs),
		result.Total,
		result.Duration().Round(time.Second),
	)
	if result.Total == 0 {
		return out + "No pending items\n"
	}

	rows := make([][]string, 0, result.Total)
	for _, id := range result.SucceededIDs {
		rows = append(rows, []string{id, "succeeded", "-", "-"})
	}
	for _, failure := range result.Failed {
		rows = append(rows, []string{
			failure.ID,
			"failed",
			dashIfEmpty(failure.Stage),
			truncate(failure.Reason+": "+failure.Message, 72),
		})
	}
	out += renderTable([]string{"Post", "Result", "Stage", "Detail"}, rows, nil) + "\n"
	for _, warning := range result.Warnings {
		out += "warning: " + warning + "\n"
	}
	return out
}
