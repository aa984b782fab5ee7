package workflow

import (
	"context"

	"postforge/internal/adapters"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool              `json:"running"`
	LastError  string            `json:"last_error,omitempty"`
	LastResult *BatchResult      `json:"last_run,omitempty"`
	Adapters   []adapters.Health `json:"adapters"`
}

// Status returns the latest workflow information. When probe is set every
// ready adapter is checked live.
func (m *Manager) Status(ctx context.Context, probe bool) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastResult != nil {
		copy := *m.lastResult
		summary.LastResult = &copy
	}
	m.mu.RUnlock()

	if probe {
		summary.Adapters = m.adapters.Probe(ctx)
	} else {
		summary.Adapters = m.adapters.Status()
	}
	return summary
}

// LastResult returns the most recent completed batch, if any.
func (m *Manager) LastResult() (BatchResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastResult == nil {
		return BatchResult{}, false
	}
	return *m.lastResult, true
}

// Running reports whether a batch is in progress in this process.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) setRunning(running bool) {
	m.mu.Lock()
	m.running = running
	m.mu.Unlock()
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastResult(result BatchResult) {
	m.mu.Lock()
	m.lastResult = &result
	m.mu.Unlock()
}
