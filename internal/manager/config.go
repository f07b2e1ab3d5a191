package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mlserve/internal/resolver"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxTokens       = 256
	defaultLoadConcurrency = 1
)

// ArtifactResolver resolves a configured model name to a local artifact.
// *resolver.Resolver satisfies it.
type ArtifactResolver interface {
	Resolve(ctx context.Context, name string) (resolver.Artifact, error)
}

// HistoryRecorder persists a finished LoadReport. Errors are logged only.
type HistoryRecorder interface {
	RecordLoad(ctx context.Context, report LoadReport) error
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Resolver ArtifactResolver
	// Adapter constructs engines. Defaults to the in-process llama adapter
	// built from LlamaCtx and LlamaThreads.
	Adapter      InferenceAdapter
	LlamaCtx     int
	LlamaThreads int
	// Sampling is applied to every Infer call.
	Sampling SamplingConfig
	// LoadConcurrency bounds parallel model loads; 1 loads sequentially.
	LoadConcurrency int
	Publisher       EventPublisher
	History         HistoryRecorder
	Logger          *zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		resolver:    cfg.Resolver,
		adapter:     cfg.Adapter,
		sampling:    cfg.Sampling,
		concurrency: cfg.LoadConcurrency,
		pub:         cfg.Publisher,
		history:     cfg.History,
		log:         zerolog.Nop(),
		startTime:   time.Now(),
	}
	if m.adapter == nil {
		m.adapter = NewLlamaAdapter(cfg.LlamaCtx, cfg.LlamaThreads)
	}
	if m.sampling.MaxTokens <= 0 {
		m.sampling.MaxTokens = defaultMaxTokens
	}
	if m.concurrency <= 0 {
		m.concurrency = defaultLoadConcurrency
	}
	if m.pub == nil {
		m.pub = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	return m
}
