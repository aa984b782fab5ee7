package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"postforge/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the SQLite work queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueImportCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make(map[queue.Status]struct{}, len(statuses))
			for _, raw := range statuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				filter[status] = struct{}{}
			}

			return ctx.withStore(func(store *queue.Store) error {
				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				selected := make([]queue.Record, 0, len(records))
				for _, record := range records {
					if len(filter) > 0 {
						if _, ok := filter[record.State()]; !ok {
							continue
						}
					}
					selected = append(selected, record)
				}

				if jsonOutput {
					return writeJSON(cmd, selected)
				}
				if len(selected) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"#", "Post", "Keyword", "Status", "Processed", "Last Error"},
					buildQueueRows(selected),
					[]columnAlignment{alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, failed, done)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print items as JSON")
	return cmd
}

func buildQueueRows(records []queue.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Position),
			record.ID,
			truncate(record.Keyword, 40),
			string(record.State()),
			formatOptionalTime(record.ProcessedAt),
			dashIfEmpty(truncate(record.LastError, 48)),
		})
	}
	return rows
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var seoTitle string

	cmd := &cobra.Command{
		Use:   "add <post-id> <keyword>",
		Short: "Queue a post for enhancement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				item, err := store.Add(cmd.Context(), args[0], args[1], seoTitle)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as item %d\n", item.Label(), item.Position)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&seoTitle, "seo-title", "", "Suggested SEO title")
	return cmd
}

func newQueueImportCommand(ctx *commandContext) *cobra.Command {
	var sheetName string

	cmd := &cobra.Command{
		Use:   "import <workbook.xlsx>",
		Short: "Import pending rows from a keyword workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger(false)
			if err != nil {
				return err
			}
			name := sheetName
			if name == "" {
				name = cfg.Queue.SheetName
			}
			sheet, err := queue.OpenSheet(args[0], name, queue.SheetColumns{
				Keyword:   cfg.Queue.KeywordColumn,
				SEOTitle:  cfg.Queue.SEOTitleColumn,
				PostID:    cfg.Queue.PostIDColumn,
				Processed: cfg.Queue.ProcessedColumn,
			}, logger)
			if err != nil {
				return err
			}
			defer sheet.Close()

			items, err := sheet.ListPending(cmd.Context())
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				added, err := store.Import(cmd.Context(), items)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d pending rows from %s\n", added, len(items), sheet.Path())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sheetName, "sheet", "", "Worksheet name (defaults to queue.sheet_name)")
	return cmd
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset [position...]",
		Short: "Return items to pending so the next run retries them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("specify item positions or --all")
			}
			positions, err := parsePositions(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				count, err := store.Reset(cmd.Context(), positions...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d item(s)\n", count)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Reset every item")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <position...>",
		Short: "Delete items from the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positions, err := parsePositions(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, position := range positions {
					removed, err := store.Remove(cmd.Context(), position)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "Removed item %d\n", position)
					} else {
						fmt.Fprintf(out, "Item %d not found\n", position)
					}
				}
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the queue database and summarize item states",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				diag, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Queue database", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Path", statusInfo, diag.DBPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Readable", okOrError(diag.DatabaseReadable), yesNo(diag.DatabaseReadable), colorize))
				fmt.Fprintln(out, renderStatusLine("Schema", okOrError(diag.TableExists), dashIfEmpty(diag.SchemaVersion), colorize))
				fmt.Fprintln(out, renderStatusLine("Integrity", okOrError(diag.IntegrityCheck), yesNo(diag.IntegrityCheck), colorize))
				if len(diag.MissingColumns) > 0 {
					fmt.Fprintln(out, renderStatusLine("Missing columns", statusError, strings.Join(diag.MissingColumns, ", "), colorize))
				}
				if diag.Error != "" {
					fmt.Fprintln(out, renderStatusLine("Error", statusError, diag.Error, colorize))
				}

				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Count"},
					[][]string{
						{"pending", strconv.Itoa(summary.Pending)},
						{"failed", strconv.Itoa(summary.Failed)},
						{"done", strconv.Itoa(summary.Processed)},
						{"total", strconv.Itoa(summary.Total)},
					},
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func parsePositions(args []string) ([]int, error) {
	positions := make([]int, 0, len(args))
	for _, arg := range args {
		position, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || position <= 0 {
			return nil, fmt.Errorf("invalid item position %q", arg)
		}
		positions = append(positions, position)
	}
	return positions, nil
}
