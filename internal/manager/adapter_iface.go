package manager

import "context"

// InferenceAdapter abstracts the model runtime used by the Manager.
// Concrete implementations (llama.cpp in-process, OpenAI-compatible servers)
// satisfy this interface.
type InferenceAdapter interface {
	// Load constructs an engine for the artifact at modelPath. modelPath is
	// the local directory (or file) produced by the resolver.
	Load(modelPath string) (InferSession, error)
}

// InferSession is a loaded engine. Generate must be safe to call from many
// goroutines; implementations serialize internally when the runtime requires it.
type InferSession interface {
	// Generate returns the candidate outputs for prompt. Callers use the first.
	Generate(ctx context.Context, prompt string, cfg SamplingConfig) ([]Output, error)
	// Close releases any resources associated with the session.
	Close() error
}

// SamplingConfig is the fixed generation configuration applied to every
// request. Zero values leave the engine default in place, except MaxTokens
// which NewWithConfig always sets.
type SamplingConfig struct {
	MaxTokens     int
	Temperature   float32
	TopP          float32
	TopK          int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// Output is one generated candidate.
type Output struct {
	Text         string
	FinishReason string
}
