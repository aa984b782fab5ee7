package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"postforge/internal/enhance"
	"postforge/internal/workflow"
)

func newStageCommand(ctx *commandContext) *cobra.Command {
	var keyword string
	var seoTitle string
	var title string
	var inputPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stage <name>",
		Short: "Run a single enhancement stage against local content",
		Long: "Run one stage of the enhancement chain against content read from --file\n" +
			"(or stdin when --file is \"-\") and print the stage output. Nothing is\n" +
			"archived and no document is updated.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(keyword) == "" {
				return errors.New("--keyword is required")
			}
			content, err := readStageInput(cmd, inputPath)
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger(false)
			if err != nil {
				return err
			}

			stageCtx, stop := interruptContext(cmd.Context())
			defer stop()

			var output enhance.StageOutput
			err = ctx.withManager(stageCtx, logger, func(mgr *workflow.Manager) error {
				var stageErr error
				output, stageErr = mgr.Engine().RunStage(stageCtx, args[0], enhance.Input{
					Title:    title,
					Content:  content,
					Keyword:  keyword,
					SEOTitle: seoTitle,
				})
				return stageErr
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, output)
			}
			out := cmd.OutOrStdout()
			if output.MetaTitle != "" {
				fmt.Fprintf(out, "Meta title:       %s\n", output.MetaTitle)
				fmt.Fprintf(out, "Meta description: %s\n\n", output.MetaDescription)
			}
			fmt.Fprintln(out, output.Content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Target keyword")
	cmd.Flags().StringVar(&seoTitle, "seo-title", "", "Suggested SEO title")
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVarP(&inputPath, "file", "f", "-", "File containing the content (- for stdin)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the stage output as JSON")
	return cmd
}

func readStageInput(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return string(data), nil
}
