// Package main implements the postforge command line interface.
//
// The CLI wires configuration, adapters, and the enhancement workflow
// together. `postforge serve` runs the HTTP trigger daemon, while `run`,
// `stage`, `queue`, `archive`, and `health` operate directly on the
// configured backends without a daemon.
package main
