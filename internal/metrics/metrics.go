// Package metrics is a minimal, backend-agnostic metrics facade. The sync
// core records counters and histograms against the process-wide backend;
// commands decide at startup which backend (datadog, none) actually receives
// them. With no backend configured every call is a cheap no-op.
package metrics

import "sync"

// Labels are free-form metric dimensions (e.g. {"status": "ok"}).
type Labels map[string]string

// Backend receives recorded metrics.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits anything buffered. Called at least once at shutdown.
	Flush() error
}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Passing nil restores the
// no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a named counter on the configured backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the configured backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the configured backend.
func Flush() error {
	return current().Flush()
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
