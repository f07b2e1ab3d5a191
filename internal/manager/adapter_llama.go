//go:build llama

package manager

import (
	"context"
	"errors"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaAdapter holds global config used to initialize a model instance
type llamaAdapter struct {
	ctxSize int
	threads int
}

func NewLlamaAdapter(ctxSize, threads int) InferenceAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads}
}

// llamaSession owns the loaded model. go-llama.cpp keeps one evaluation
// context per model, so Predict calls are serialized by mu.
type llamaSession struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
}

func (a *llamaAdapter) Load(modelPath string) (InferSession, error) {
	file, err := findModelFile(modelPath)
	if err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{}
	if a.ctxSize > 0 {
		mo = append(mo, llama.SetContext(a.ctxSize))
	}
	m, err := llama.New(file, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaSession{model: m, threads: a.threads}, nil
}

func (s *llamaSession) Generate(ctx context.Context, prompt string, cfg SamplingConfig) ([]Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return nil, errors.New("llama model not initialized")
	}
	// Stop generation early when the caller goes away.
	s.model.SetTokenCallback(func(string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	text, err := s.model.Predict(prompt, mapSamplingToPredictOptions(cfg, s.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return []Output{{Text: text, FinishReason: "stop"}}, nil
}

func (s *llamaSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// mapSamplingToPredictOptions converts SamplingConfig into go-llama.cpp options
func mapSamplingToPredictOptions(cfg SamplingConfig, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, cfg.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(cfg.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(cfg.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(cfg.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(cfg.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if cfg.Seed != 0 {
		po = append(po, llama.SetSeed(cfg.Seed))
	}
	if len(cfg.Stop) > 0 {
		po = append(po, llama.SetStopWords(cfg.Stop...))
	}
	return po
}
