package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"postforge/internal/adapters"
	"postforge/internal/cms"
	"postforge/internal/config"
	"postforge/internal/testsupport"
)

const finalReply = "```json\n{\"metaTitle\":\"T\",\"metaDescription\":\"D\",\"content\":\"<final>\"}\n```"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	documents  *testsupport.Documents
	archive    *testsupport.Archive
	generator  *testsupport.Generator
}

// setupCLITestEnv writes a config file for a fresh temp tree and routes
// adapter construction to fakes, keeping the real SQLite queue.
func setupCLITestEnv(t *testing.T, docs ...cms.Document) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		documents:  testsupport.NewDocuments(docs...),
		archive:    testsupport.NewArchive(),
		generator:  testsupport.NewGenerator(),
	}

	original := connectAdapters
	connectAdapters = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) *adapters.Set {
		connected := original(ctx, cfg, logger)
		return adapters.New(connected.Queue, env.documents, env.archive, env.generator)
	}
	t.Cleanup(func() { connectAdapters = original })
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
