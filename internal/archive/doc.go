// Package archive keeps an append-only history of document content.
//
// Every Store call writes a new snapshot keyed by document id, stage label
// and capture time; existing snapshots are never overwritten. Filesystem
// writes one JSON object per snapshot under <dir>/<prefix>/<document id>/.
// Postgres inserts rows into a snapshots table.
package archive
