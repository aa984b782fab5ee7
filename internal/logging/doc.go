// Package logging assembles structured slog loggers and formatting helpers used
// across postforge.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code automatically
// tags log lines with work item IDs, stage names, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail, plus retention pruning for the dated log files written under log_dir.
package logging
