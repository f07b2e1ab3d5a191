package manager

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mlserve/internal/resolver"
)

// fakeResolver returns canned artifacts or errors per name.
type fakeResolver struct {
	mu     sync.Mutex
	errs   map[string]error
	panics map[string]bool
	delay  time.Duration
	calls  []string
	cache  string
}

func newFakeResolver(cache string) *fakeResolver {
	return &fakeResolver{errs: map[string]error{}, panics: map[string]bool{}, cache: cache}
}

func (f *fakeResolver) Resolve(ctx context.Context, name string) (resolver.Artifact, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	err := f.errs[name]
	p := f.panics[name]
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if p {
		panic("resolver exploded for " + name)
	}
	if err != nil {
		return resolver.Artifact{}, err
	}
	return resolver.Artifact{
		Model:         name,
		QualifiedName: "vllm-" + name,
		Version:       "3",
		RunID:         "run-" + name,
		Path:          filepath.Join(f.cache, name),
		Bytes:         42,
	}, nil
}

func (f *fakeResolver) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeAdapter is a lightweight in-memory adapter used for tests. Errors and
// panics are keyed by the base name of the model path.
type fakeAdapter struct {
	mu       sync.Mutex
	loadErr  map[string]error
	panics   map[string]bool
	nilSess  map[string]bool
	genErr   error
	outputs  []Output
	loaded   []string
	sessions []*fakeSession
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		loadErr: map[string]error{},
		panics:  map[string]bool{},
		nilSess: map[string]bool{},
	}
}

func (f *fakeAdapter) Load(modelPath string) (InferSession, error) {
	name := filepath.Base(modelPath)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics[name] {
		panic("engine exploded for " + name)
	}
	if err := f.loadErr[name]; err != nil {
		return nil, err
	}
	if f.nilSess[name] {
		return nil, nil
	}
	f.loaded = append(f.loaded, modelPath)
	outs := f.outputs
	if outs == nil {
		outs = []Output{{Text: "reply from " + name, FinishReason: "stop"}}
	}
	s := &fakeSession{name: name, outputs: outs, err: f.genErr}
	f.sessions = append(f.sessions, s)
	return s, nil
}

type fakeSession struct {
	name    string
	outputs []Output
	err     error
	gate    chan struct{}
	calls   atomic.Int64
	closed  atomic.Bool
	lastCfg atomic.Pointer[SamplingConfig]
	lastMsg atomic.Pointer[string]
}

func (s *fakeSession) Generate(ctx context.Context, prompt string, cfg SamplingConfig) ([]Output, error) {
	s.calls.Add(1)
	s.lastCfg.Store(&cfg)
	s.lastMsg.Store(&prompt)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.outputs, nil
}

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

var errBoom = errors.New("boom")

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

// loadedManager builds a Manager over fakes and runs LoadAll for names.
func loadedManager(t *testing.T, names ...string) (*Manager, *fakeAdapter) {
	t.Helper()
	ad := newFakeAdapter()
	m := New(newFakeResolver(t.TempDir()), ad)
	if _, _, err := m.LoadAll(testCtx(t), names); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	return m, ad
}
