// Package preflight provides readiness checks for the filesystem paths and
// external services postforge depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failed check.
//   - The CLI "postforge health" command prints the results as a table.
//
// Directory checks always run; adapter checks probe the live capability set.
package preflight
