// Package workflow runs enhancement batches over the work queue.
//
// The Manager reads pending work items, fetches each post from the CMS,
// archives the original, drives the enhancement stage chain (archiving every
// stage output as it completes), writes the final content back and marks the
// item processed. Items are processed strictly one at a time; one item's
// failure never stops the batch and a document is only updated after its
// whole chain succeeded.
//
// A cross-process run lock keeps two batches (CLI or daemon) from overlapping.
// The aggregated BatchResult enumerates every attempted item with a terminal
// outcome.
package workflow
