// Package daemon coordinates the long-running postforge process.
//
// It wires configuration, the adapter set and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances,
// and serves the HTTP surface: POST /process runs one batch, GET /health
// reports adapter readiness and the last run, and POST /debug/stages/{stage}
// runs a single enhancement stage for manual inspection.
//
// Keep orchestration logic out of here: batch processing lives in workflow
// while the daemon focuses on startup, shutdown and request handling.
package daemon
