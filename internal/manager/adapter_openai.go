package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// openAIAdapter implements InferenceAdapter against an OpenAI-compatible
// completion server (vLLM, llama.cpp server). The server owns the weights;
// Load only checks that the resolved artifact is being served.
type openAIAdapter struct {
	baseURL    string
	apiKey     string
	reqTimeout time.Duration
	// listTimeout bounds the model listing in Load and Ping even when
	// reqTimeout is zero.
	listTimeout time.Duration
	httpClient  *http.Client
	log         zerolog.Logger
}

// defaultListTimeout bounds GET /v1/models when no request timeout is set.
const defaultListTimeout = 30 * time.Second

// NewOpenAIAdapter constructs a server-backed adapter. When positive,
// reqTimeout bounds every request; the model listing is always bounded.
func NewOpenAIAdapter(baseURL, apiKey string, reqTimeout, connectTimeout time.Duration, log zerolog.Logger) InferenceAdapter {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout stays 0: every request carries its own context deadline.
	return &openAIAdapter{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		reqTimeout:  reqTimeout,
		listTimeout: defaultListTimeout,
		httpClient:  &http.Client{Transport: tr},
		log:         log.With().Str("adapter", "openai").Logger(),
	}
}

type openAISession struct {
	adapter *openAIAdapter
	modelID string
}

func (a *openAIAdapter) listTimeoutOrDefault() time.Duration {
	if a.reqTimeout > 0 {
		return a.reqTimeout
	}
	if a.listTimeout > 0 {
		return a.listTimeout
	}
	return defaultListTimeout
}

type openAIModelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Load matches modelPath against the server's model list. vLLM serves a model
// under its path unless --served-model-name is given, so both the full path
// and its base name are accepted.
func (a *openAIAdapter) Load(modelPath string) (InferSession, error) {
	want := strings.TrimRight(strings.TrimSpace(modelPath), "/")
	if want == "" {
		return nil, errors.New("model path is empty")
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.listTimeoutOrDefault())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	a.authorize(req)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, ErrDependencyUnavailable(fmt.Sprintf("engine server %s unreachable: %v", a.baseURL, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpStatusError("list models", resp)
	}
	var list openAIModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	base := filepath.Base(want)
	served := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		id := strings.TrimRight(m.ID, "/")
		if id == want || id == base {
			a.log.Debug().Str("path", want).Str("served_as", m.ID).Msg("model matched")
			return &openAISession{adapter: a, modelID: m.ID}, nil
		}
		served = append(served, m.ID)
	}
	return nil, fmt.Errorf("engine server does not serve %q (served: %s)", want, strings.Join(served, ", "))
}

// openAICompletionRequest represents the payload for /v1/completions.
type openAICompletionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature,omitempty"`
	TopP        float32  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        int      `json:"seed,omitempty"`
	Stream      bool     `json:"stream"`
	// Not standard OpenAI; vLLM and llama.cpp accept it, others ignore it.
	RepeatPenalty float32 `json:"repetition_penalty,omitempty"`
}

type openAICompletionResponse struct {
	Choices []struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (s *openAISession) Generate(ctx context.Context, prompt string, cfg SamplingConfig) ([]Output, error) {
	a := s.adapter
	if a.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.reqTimeout)
		defer cancel()
	}
	body, err := json.Marshal(openAICompletionRequest{
		Model:         s.modelID,
		Prompt:        prompt,
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		TopK:          cfg.TopK,
		Stop:          cfg.Stop,
		Seed:          cfg.Seed,
		RepeatPenalty: cfg.RepeatPenalty,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	a.authorize(req)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrDependencyUnavailable(fmt.Sprintf("engine server %s unreachable: %v", a.baseURL, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpStatusError("completion", resp)
	}
	var out openAICompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	outputs := make([]Output, 0, len(out.Choices))
	for _, c := range out.Choices {
		outputs = append(outputs, Output{Text: c.Text, FinishReason: c.FinishReason})
	}
	return outputs, nil
}

func (s *openAISession) Close() error { return nil }

func (a *openAIAdapter) authorize(req *http.Request) {
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
}

func httpStatusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("engine server %s: %s: %s", op, resp.Status, strings.TrimSpace(string(b)))
}
