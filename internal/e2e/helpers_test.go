package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mlserve/internal/history"
	"mlserve/internal/httpapi"
	"mlserve/internal/manager"
	"mlserve/internal/registry"
	"mlserve/internal/resolver"
	"mlserve/pkg/types"
)

// writeVersion lays out <root>/vllm-<name>/<version>/model.gguf.
func writeVersion(t *testing.T, root, name, version, weights string) {
	t.Helper()
	dir := filepath.Join(root, "vllm-"+name, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if weights == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(dir, "model.gguf"), []byte(weights), 0o644); err != nil {
		t.Fatalf("write weights: %v", err)
	}
}

// echoAdapter loads <path>/model.gguf and answers with its content.
type echoAdapter struct{}

func (echoAdapter) Load(path string) (manager.InferSession, error) {
	b, err := os.ReadFile(filepath.Join(path, "model.gguf"))
	if err != nil {
		return nil, err
	}
	return echoSession{weights: strings.TrimSpace(string(b))}, nil
}

type echoSession struct{ weights string }

func (s echoSession) Generate(_ context.Context, prompt string, _ manager.SamplingConfig) ([]manager.Output, error) {
	return []manager.Output{{Text: s.weights + ": " + prompt, FinishReason: "stop"}}, nil
}

func (echoSession) Close() error { return nil }

// stack is the full service assembled the way the binary assembles it.
type stack struct {
	srv    *httptest.Server
	mgr    *manager.Manager
	report manager.LoadReport
}

func newStack(t *testing.T, registryDir, cacheDir string, names ...string) *stack {
	t.Helper()
	reg, err := registry.NewDirRegistry(registryDir)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	res := resolver.New(reg, resolver.Options{CacheDir: cacheDir, Prefix: "vllm-"})
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Resolver:        res,
		Adapter:         echoAdapter{},
		LoadConcurrency: 2,
		History:         store,
	})
	st := &stack{mgr: mgr}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, report, err := mgr.LoadAll(ctx, names)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	st.report = report
	st.srv = httptest.NewServer(httpapi.NewMux(serviceWithHistory{Manager: mgr, store: store}))
	t.Cleanup(st.srv.Close)
	t.Cleanup(func() { _ = mgr.Close() })
	return st
}

type serviceWithHistory struct {
	*manager.Manager
	store *history.Store
}

func (s serviceWithHistory) RecentLoads(ctx context.Context, limit int) ([]types.LoadRecord, error) {
	return s.store.Recent(ctx, limit)
}

func postPredict(t *testing.T, base, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, base+"/predict", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(t, req)
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, buf.Bytes()
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("json: %v (%s)", err, b)
	}
	return v
}
