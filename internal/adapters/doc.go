// Package adapters builds the external capabilities a batch run depends on.
//
// Connect constructs the queue source, document store, snapshot archive and
// text generator from configuration. A capability that cannot be built is
// replaced by a stand-in whose every call fails with ErrAdapterConnection,
// and its Health entry records why. Callers consult Ready before doing any
// work instead of inspecting individual adapters.
package adapters
