package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"postforge/internal/adapters"
	"postforge/internal/config"
	"postforge/internal/preflight"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check directories and probe every adapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.commandLogger(false)
			if err != nil {
				return err
			}
			return ctx.withAdapters(cmd.Context(), logger, func(cfg *config.Config, set *adapters.Set) error {
				results := preflight.RunAll(cmd.Context(), cfg, set)
				if jsonOutput {
					if err := writeJSON(cmd, results); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					for _, line := range preflightLines(results, shouldColorize(out)) {
						fmt.Fprintln(out, line)
					}
				}
				return preflight.Failures(results)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print check results as JSON")
	return cmd
}
