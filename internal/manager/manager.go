package manager

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Manager struct {
	resolver    ArtifactResolver
	adapter     InferenceAdapter
	sampling    SamplingConfig
	concurrency int
	pub         EventPublisher
	history     HistoryRecorder
	log         zerolog.Logger

	// started flips once when LoadAll begins.
	started atomic.Bool
	// table and report are stored once, at the end of LoadAll.
	table  atomic.Pointer[RoutingTable]
	report atomic.Pointer[LoadReport]

	startTime time.Time
}

// New constructs a Manager with default sampling and the given collaborators.
func New(res ArtifactResolver, adapter InferenceAdapter) *Manager {
	return NewWithConfig(ManagerConfig{Resolver: res, Adapter: adapter})
}

// Phase reports Loading until the routing table has been published.
func (m *Manager) Phase() Phase {
	if m.table.Load() == nil {
		return PhaseLoading
	}
	return PhaseServing
}

// Ready reports whether the Manager is serving at least one model.
func (m *Manager) Ready() bool {
	return m.table.Load().Len() > 0
}

// Table returns the published routing table, or nil while loading.
func (m *Manager) Table() *RoutingTable { return m.table.Load() }

// Report returns the LoadReport of the finished LoadAll run.
func (m *Manager) Report() (LoadReport, bool) {
	r := m.report.Load()
	if r == nil {
		return LoadReport{}, false
	}
	return *r, true
}

// Sampling returns the fixed sampling configuration.
func (m *Manager) Sampling() SamplingConfig { return m.sampling }

// Close releases every loaded session. The table stays published; Infer
// calls after Close fail in the engine.
func (m *Manager) Close() error {
	t := m.table.Load()
	var errs []error
	for _, name := range t.Names() {
		s, _ := t.Lookup(name)
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LlamaBuilt reports whether this binary carries the in-process llama engine.
func LlamaBuilt() bool { return llamaBuilt }
