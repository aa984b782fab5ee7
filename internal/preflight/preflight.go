package preflight

import (
	"context"
	"fmt"
	"strings"

	"postforge/internal/adapters"
	"postforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the filesystem checks for cfg and, when set is non-nil, a
// live probe of every adapter.
func RunAll(ctx context.Context, cfg *config.Config, set *adapters.Set) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Archive.Backend == config.ArchiveFilesystem {
		results = append(results, CheckDirectoryAccess("Archive directory", cfg.Archive.Dir))
	}
	if cfg.Queue.Backend == config.QueueSheet {
		results = append(results, CheckFileAccess("Queue workbook", cfg.Queue.SheetPath))
	}

	if set != nil {
		for _, health := range set.Probe(ctx) {
			results = append(results, adapterResult(health))
		}
	}
	return results
}

// Failures joins the details of every failed result, or returns nil.
func Failures(results []Result) error {
	var failures []string
	for _, r := range results {
		if !r.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("preflight checks failed: %s", strings.Join(failures, "; "))
}

func adapterResult(health adapters.Health) Result {
	name := "Adapter " + health.Name
	if health.Backend != "" {
		name = fmt.Sprintf("%s (%s)", name, health.Backend)
	}
	if health.Ready {
		return Result{Name: name, Passed: true, Detail: health.Detail}
	}
	return Result{Name: name, Detail: summarizeDetail(health.Detail)}
}
