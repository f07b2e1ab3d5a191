package manager

import (
	"context"
	"fmt"
	"time"
)

// Prediction is the result of a successful Infer call.
type Prediction struct {
	Model        string
	Text         string
	FinishReason string
}

// Infer routes prompt to the engine loaded for model and returns the text of
// the first candidate. A name missing from the table (or any name before the
// table is published) yields *ModelNotFoundError listing the loaded names.
// The table is read without locking; concurrent calls only contend inside the
// engine itself.
func (m *Manager) Infer(ctx context.Context, model, prompt string) (Prediction, error) {
	t := m.table.Load()
	sess, ok := t.Lookup(model)
	if !ok {
		inferenceTotal.WithLabelValues(unknownModelLabel, outcomeNotFound).Inc()
		return Prediction{}, &ModelNotFoundError{Model: model, Available: t.Names()}
	}
	start := time.Now()
	outs, err := sess.Generate(ctx, prompt, m.sampling)
	inferenceDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		inferenceTotal.WithLabelValues(model, outcomeError).Inc()
		return Prediction{}, fmt.Errorf("generate with %s: %w", model, err)
	}
	if len(outs) == 0 {
		inferenceTotal.WithLabelValues(model, outcomeNoOutput).Inc()
		return Prediction{}, fmt.Errorf("generate with %s: %w", model, ErrNoOutput)
	}
	inferenceTotal.WithLabelValues(model, outcomeOK).Inc()
	return Prediction{Model: model, Text: outs[0].Text, FinishReason: outs[0].FinishReason}, nil
}

// ListAvailable returns the sorted names in the published table. It is empty
// while loading and identical across calls once serving.
func (m *Manager) ListAvailable() []string {
	return m.table.Load().Names()
}
