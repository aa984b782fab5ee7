package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"postforge/internal/adapters"
	"postforge/internal/config"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived stage snapshots",
	}
	archiveCmd.AddCommand(newArchiveListCommand(ctx))
	return archiveCmd
}

func newArchiveListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list <document-id>",
		Short: "List snapshots stored for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.commandLogger(false)
			if err != nil {
				return err
			}
			return ctx.withAdapters(cmd.Context(), logger, func(_ *config.Config, set *adapters.Set) error {
				entries, err := set.Archive.List(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No snapshots for document %s\n", args[0])
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{formatTime(entry.CapturedAt), entry.Stage, entry.Location})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Captured", "Stage", "Location"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}
