package manager

import (
	"context"
	"fmt"
	"net/http"
)

// SanityReport describes runtime checks for the configured engine.
type SanityReport struct {
	Adapter    string `json:"adapter"`
	LlamaBuilt bool   `json:"llama_built"`
	Reachable  bool   `json:"reachable"`
	Error      string `json:"error,omitempty"`
}

// pinger is implemented by adapters backed by a remote server.
type pinger interface {
	Ping(ctx context.Context) error
}

// SanityCheck reports whether the configured adapter can be used at all,
// before any model is loaded. It does not mutate state.
func (m *Manager) SanityCheck(ctx context.Context) SanityReport {
	r := SanityReport{LlamaBuilt: llamaBuilt}
	switch m.adapter.(type) {
	case *llamaAdapter:
		r.Adapter = "llama"
		r.Reachable = llamaBuilt
		if !llamaBuilt {
			r.Error = "llama support not built (missing 'llama' build tag)"
		}
		return r
	case *openAIAdapter:
		r.Adapter = "openai"
	default:
		r.Adapter = fmt.Sprintf("%T", m.adapter)
	}
	p, ok := m.adapter.(pinger)
	if !ok {
		r.Reachable = true
		return r
	}
	if err := p.Ping(ctx); err != nil {
		r.Error = err.Error()
		return r
	}
	r.Reachable = true
	return r
}

// Ping checks that the engine server answers its model listing.
func (a *openAIAdapter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.listTimeoutOrDefault())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	a.authorize(req)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return ErrDependencyUnavailable(fmt.Sprintf("engine server %s unreachable: %v", a.baseURL, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpStatusError("list models", resp)
	}
	return nil
}
