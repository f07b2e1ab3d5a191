package manager

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mlserve/internal/resolver"
)

// LoadAll resolves and loads every configured name and publishes the
// resulting routing table. A failure for one name is recorded in the report
// and never stops the others, so the table holds the largest subset that
// could be loaded (possibly empty). LoadAll runs once; later calls return
// ErrAlreadyLoaded.
func (m *Manager) LoadAll(ctx context.Context, names []string) (*RoutingTable, LoadReport, error) {
	if !m.started.CompareAndSwap(false, true) {
		return nil, LoadReport{}, ErrAlreadyLoaded
	}
	report := LoadReport{RunID: uuid.NewString(), Started: time.Now()}
	log := m.log.With().Str("load_run_id", report.RunID).Logger()

	type slot struct {
		name string
		dup  bool
	}
	var slots []slot
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			log.Warn().Msg("skipping blank model name")
			continue
		}
		slots = append(slots, slot{name: n, dup: seen[n]})
		seen[n] = true
	}
	log.Info().Int("models", len(seen)).Int("concurrency", m.concurrency).Msg("loading models")
	m.pub.Publish(Event{Name: EventLoadStart, Fields: map[string]any{"load_run_id": report.RunID, "models": len(seen)}})

	outcomes := make([]LoadOutcome, len(slots))
	sessions := make([]InferSession, len(slots))
	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, s := range slots {
		if s.dup {
			outcomes[i] = LoadOutcome{Model: s.name, Stage: StageDuplicate, Err: errDuplicateName}
			log.Warn().Str("model", s.name).Msg("skipping duplicate model name")
			continue
		}
		i, s := i, s
		// Workers never return an error, so a failed load cannot cancel a sibling.
		g.Go(func() error {
			outcomes[i], sessions[i] = m.loadOne(ctx, log, s.name)
			return nil
		})
	}
	_ = g.Wait()

	built := make(map[string]InferSession, len(slots))
	for i, s := range sessions {
		if s != nil {
			built[outcomes[i].Model] = s
		}
	}
	table := newRoutingTable(built)
	report.Finished = time.Now()
	report.Outcomes = outcomes

	m.report.Store(&report)
	m.table.Store(table)
	modelsLoaded.Set(float64(table.Len()))

	failed := len(report.Failed())
	ev := log.Info()
	if table.Len() == 0 {
		ev = log.Warn()
	}
	ev.Strs("loaded", table.Names()).Int("failed", failed).Dur("dur", report.Finished.Sub(report.Started)).Msg("model loading complete")
	m.pub.Publish(Event{Name: EventLoadComplete, Fields: map[string]any{
		"load_run_id": report.RunID,
		"loaded":      table.Len(),
		"failed":      failed,
	}})

	if m.history != nil {
		if err := m.history.RecordLoad(ctx, report); err != nil {
			log.Error().Err(err).Msg("failed to record load history")
		}
	}
	return table, report, nil
}

// loadOne runs resolve then construct for a single name. It recovers panics
// from either step and turns them into a failed outcome.
func (m *Manager) loadOne(ctx context.Context, log zerolog.Logger, name string) (out LoadOutcome, sess InferSession) {
	start := time.Now()
	out = LoadOutcome{Model: name, Stage: StageResolve}
	defer func() {
		if r := recover(); r != nil {
			sess = nil
			out.Err = panicError{stage: out.Stage, value: r}
			if out.Stage == StageConstruct {
				out.Err = &EngineError{Model: name, Path: out.Path, Err: out.Err}
			}
		}
		out.Duration = time.Since(start)
		modelLoadDuration.Observe(out.Duration.Seconds())
		if out.Err != nil {
			modelLoadFailures.WithLabelValues(string(out.Stage)).Inc()
			log.Error().Err(out.Err).Str("model", name).Str("stage", string(out.Stage)).Dur("dur", out.Duration).Msg("model load failed")
			m.pub.Publish(Event{Name: EventLoadFailed, Model: name, Fields: map[string]any{"stage": string(out.Stage), "error": out.Err.Error()}})
			return
		}
		log.Info().Str("model", name).Str("version", out.Version).Str("path", out.Path).Dur("dur", out.Duration).Msg("model ready")
		m.pub.Publish(Event{Name: EventLoadReady, Model: name, Fields: map[string]any{"version": out.Version, "path": out.Path}})
	}()

	if m.resolver == nil {
		out.Err = errors.New("no resolver configured")
		return out, nil
	}
	art, err := m.resolver.Resolve(ctx, name)
	if err != nil {
		if resolver.IsArtifactFetchFailed(err) {
			out.Stage = StageFetch
		}
		out.Err = err
		return out, nil
	}
	out.Version, out.RunID, out.Path = art.Version, art.RunID, art.Path
	m.pub.Publish(Event{Name: EventLoadResolved, Model: name, Fields: map[string]any{"version": art.Version, "run_id": art.RunID, "path": art.Path, "bytes": art.Bytes}})

	out.Stage = StageConstruct
	s, err := m.adapter.Load(art.Path)
	if err != nil {
		out.Err = &EngineError{Model: name, Path: art.Path, Err: err}
		return out, nil
	}
	if s == nil {
		out.Err = &EngineError{Model: name, Path: art.Path, Err: errors.New("adapter returned no session")}
		return out, nil
	}
	out.Stage = StageReady
	return out, s
}
