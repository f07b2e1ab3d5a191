//go:build !llama

package manager

// No-CGO stub for the llama adapter, compiled when the 'llama' build tag is
// NOT set. Load always fails, so a model configured for the in-process
// engine is reported as a construction failure and left out of the table.

var llamaBuilt = false

type llamaAdapter struct {
	ctxSize int
	threads int
}

func NewLlamaAdapter(ctxSize, threads int) InferenceAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads}
}

func (a *llamaAdapter) Load(modelPath string) (InferSession, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
