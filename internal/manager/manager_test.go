package manager

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"mlserve/internal/resolver"
)

func TestNewWithConfigDefaults(t *testing.T) {
	m := NewWithConfig(ManagerConfig{})
	if m.sampling.MaxTokens != defaultMaxTokens {
		t.Fatalf("expected default MaxTokens=%d got %d", defaultMaxTokens, m.sampling.MaxTokens)
	}
	if m.concurrency != defaultLoadConcurrency {
		t.Fatalf("expected default concurrency=%d got %d", defaultLoadConcurrency, m.concurrency)
	}
	if _, ok := m.adapter.(*llamaAdapter); !ok {
		t.Fatalf("expected llama adapter by default, got %T", m.adapter)
	}
	if m.Phase() != PhaseLoading || m.Ready() {
		t.Fatalf("new manager must be loading and not ready")
	}
}

func TestLoadAll_AllSucceed(t *testing.T) {
	ad := newFakeAdapter()
	res := newFakeResolver(t.TempDir())
	pub := NewMemoryPublisher()
	m := NewWithConfig(ManagerConfig{Resolver: res, Adapter: ad, Publisher: pub})

	table, report, err := m.LoadAll(testCtx(t), []string{"po-model", "invoice-model"})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if got := table.Names(); !reflect.DeepEqual(got, []string{"invoice-model", "po-model"}) {
		t.Fatalf("unexpected names %v", got)
	}
	if m.Phase() != PhaseServing || !m.Ready() {
		t.Fatalf("expected serving and ready")
	}
	if len(report.Outcomes) != 2 || report.Outcomes[0].Model != "po-model" {
		t.Fatalf("outcomes must follow configured order: %+v", report.Outcomes)
	}
	for _, o := range report.Outcomes {
		if !o.Loaded() || o.Version != "3" || o.Err != nil {
			t.Fatalf("unexpected outcome %+v", o)
		}
	}
	if report.RunID == "" || report.Finished.Before(report.Started) {
		t.Fatalf("bad report bookkeeping: %+v", report)
	}
	if got := len(pub.Named(EventLoadReady)); got != 2 {
		t.Fatalf("expected 2 load_ready events, got %d", got)
	}
	if got := len(pub.Named(EventLoadComplete)); got != 1 {
		t.Fatalf("expected 1 load_complete event, got %d", got)
	}
}

func TestLoadAll_PartialFailureIsolation(t *testing.T) {
	ad := newFakeAdapter()
	ad.loadErr["bad-weights"] = errors.New("unsupported format")
	res := newFakeResolver(t.TempDir())
	res.errs["no-versions"] = &resolver.Error{Model: "no-versions", Kind: resolver.KindNoVersionsFound, Err: resolver.ErrNoVersions}
	res.errs["broken-download"] = &resolver.Error{Model: "broken-download", Kind: resolver.KindArtifactFetchFailed, Err: errBoom}
	pub := NewMemoryPublisher()
	m := NewWithConfig(ManagerConfig{Resolver: res, Adapter: ad, Publisher: pub})

	names := []string{"no-versions", "good-a", "broken-download", "bad-weights", "good-b"}
	table, report, err := m.LoadAll(testCtx(t), names)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if got := table.Names(); !reflect.DeepEqual(got, []string{"good-a", "good-b"}) {
		t.Fatalf("expected only good models, got %v", got)
	}
	if got := res.Calls(); !reflect.DeepEqual(got, names) {
		t.Fatalf("every name must be attempted in order: %v", got)
	}
	wantStage := map[string]Stage{
		"no-versions":     StageResolve,
		"good-a":          StageReady,
		"broken-download": StageFetch,
		"bad-weights":     StageConstruct,
		"good-b":          StageReady,
	}
	for _, o := range report.Outcomes {
		if o.Stage != wantStage[o.Model] {
			t.Fatalf("%s: stage=%s want %s", o.Model, o.Stage, wantStage[o.Model])
		}
	}
	failed := report.Failed()
	if len(failed) != 3 {
		t.Fatalf("expected 3 failures, got %+v", failed)
	}
	if !resolver.IsNoVersionsFound(failed[0].Err) {
		t.Fatalf("expected NoVersionsFound cause, got %v", failed[0].Err)
	}
	if !IsEngineConstructionFailed(failed[2].Err) {
		t.Fatalf("expected EngineError, got %v", failed[2].Err)
	}
	if got := len(pub.Named(EventLoadFailed)); got != 3 {
		t.Fatalf("expected 3 load_failed events, got %d", got)
	}
	if _, ok := table.Lookup("bad-weights"); ok {
		t.Fatalf("failed model must not be in the table")
	}
}

func TestLoadAll_AllFailYieldsEmptyServingTable(t *testing.T) {
	res := newFakeResolver(t.TempDir())
	res.errs["a"] = errBoom
	res.errs["b"] = errBoom
	m := New(res, newFakeAdapter())
	table, _, err := m.LoadAll(testCtx(t), []string{"a", "b"})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table")
	}
	if m.Phase() != PhaseServing {
		t.Fatalf("an empty table is still published")
	}
	if m.Ready() {
		t.Fatalf("not ready with zero models")
	}
	if got := m.ListAvailable(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestLoadAll_RecoversPanics(t *testing.T) {
	ad := newFakeAdapter()
	ad.panics["engine-panic"] = true
	res := newFakeResolver(t.TempDir())
	res.panics["resolver-panic"] = true
	m := New(res, ad)
	table, report, err := m.LoadAll(testCtx(t), []string{"resolver-panic", "engine-panic", "ok"})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if got := table.Names(); !reflect.DeepEqual(got, []string{"ok"}) {
		t.Fatalf("unexpected names %v", got)
	}
	if o := report.Outcomes[0]; o.Stage != StageResolve || o.Err == nil {
		t.Fatalf("resolver panic outcome: %+v", o)
	}
	if o := report.Outcomes[1]; o.Stage != StageConstruct || !IsEngineConstructionFailed(o.Err) {
		t.Fatalf("engine panic outcome: %+v", o)
	}
}

func TestLoadAll_NilSessionIsConstructionFailure(t *testing.T) {
	ad := newFakeAdapter()
	ad.nilSess["m"] = true
	m := New(newFakeResolver(t.TempDir()), ad)
	table, report, _ := m.LoadAll(testCtx(t), []string{"m"})
	if table.Len() != 0 || !IsEngineConstructionFailed(report.Outcomes[0].Err) {
		t.Fatalf("nil session must not be published: %+v", report.Outcomes[0])
	}
}

func TestLoadAll_DuplicateAndBlankNames(t *testing.T) {
	res := newFakeResolver(t.TempDir())
	m := New(res, newFakeAdapter())
	table, report, err := m.LoadAll(testCtx(t), []string{"a", " ", "a", "b"})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if got := table.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected names %v", got)
	}
	if got := res.Calls(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("duplicate must not be resolved twice: %v", got)
	}
	if len(report.Outcomes) != 3 || report.Outcomes[1].Stage != StageDuplicate {
		t.Fatalf("expected duplicate outcome in position 1: %+v", report.Outcomes)
	}
	if !errors.Is(report.Outcomes[1].Err, errDuplicateName) {
		t.Fatalf("unexpected duplicate error: %v", report.Outcomes[1].Err)
	}
}

func TestLoadAll_OnlyOnce(t *testing.T) {
	m, _ := loadedManager(t, "a")
	_, _, err := m.LoadAll(testCtx(t), []string{"b"})
	if !errors.Is(err, ErrAlreadyLoaded) {
		t.Fatalf("expected ErrAlreadyLoaded, got %v", err)
	}
	if got := m.ListAvailable(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("table must not change: %v", got)
	}
}

func TestLoadAll_NoResolver(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Adapter: newFakeAdapter()})
	table, report, err := m.LoadAll(testCtx(t), []string{"a"})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if table.Len() != 0 || report.Outcomes[0].Err == nil {
		t.Fatalf("expected failure without resolver: %+v", report.Outcomes)
	}
}

// concurrencyResolver tracks the maximum number of in-flight resolutions.
type concurrencyResolver struct {
	*fakeResolver
	cur, peak atomic.Int64
}

func (c *concurrencyResolver) Resolve(ctx context.Context, name string) (resolver.Artifact, error) {
	n := c.cur.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer c.cur.Add(-1)
	return c.fakeResolver.Resolve(ctx, name)
}

func TestLoadAll_ParallelBoundedAndIsolated(t *testing.T) {
	base := newFakeResolver(t.TempDir())
	base.delay = 20 * time.Millisecond
	base.errs["m2"] = errBoom
	res := &concurrencyResolver{fakeResolver: base}
	m := NewWithConfig(ManagerConfig{Resolver: res, Adapter: newFakeAdapter(), LoadConcurrency: 2})

	var names []string
	for i := 0; i < 6; i++ {
		names = append(names, fmt.Sprintf("m%d", i))
	}
	table, report, err := m.LoadAll(testCtx(t), names)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if table.Len() != 5 {
		t.Fatalf("expected 5 loaded, got %v", table.Names())
	}
	if p := res.peak.Load(); p > 2 {
		t.Fatalf("concurrency limit exceeded: %d", p)
	}
	for i, o := range report.Outcomes {
		if o.Model != names[i] {
			t.Fatalf("outcome %d is %s, want %s", i, o.Model, names[i])
		}
	}
}

type recordingHistory struct {
	got []LoadReport
	err error
}

func (h *recordingHistory) RecordLoad(_ context.Context, r LoadReport) error {
	h.got = append(h.got, r)
	return h.err
}

func TestLoadAll_RecordsHistory(t *testing.T) {
	h := &recordingHistory{err: errBoom}
	m := NewWithConfig(ManagerConfig{Resolver: newFakeResolver(t.TempDir()), Adapter: newFakeAdapter(), History: h})
	table, report, err := m.LoadAll(testCtx(t), []string{"a"})
	if err != nil {
		t.Fatalf("history errors must not fail loading: %v", err)
	}
	if table.Len() != 1 || len(h.got) != 1 || h.got[0].RunID != report.RunID {
		t.Fatalf("expected one recorded report, got %+v", h.got)
	}
}

func TestClose_ClosesSessions(t *testing.T) {
	m, ad := loadedManager(t, "a", "b")
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, s := range ad.sessions {
		if !s.closed.Load() {
			t.Fatalf("session %s not closed", s.name)
		}
	}
}
