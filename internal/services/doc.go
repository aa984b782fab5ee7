// Package services defines shared utilities consumed by the pipeline and its
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp work item IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper, and Reason, which turns a
//     wrapped failure into the stable reason code reported in batch results.
//
// Use these helpers when wiring new adapters so failure classification and
// observability stay uniform across the pipeline.
package services
