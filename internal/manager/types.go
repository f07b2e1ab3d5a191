package manager

import "time"

// Phase is the lifecycle phase of the Manager. Loading→Serving happens once.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseServing Phase = "serving"
)

// Stage is the last pipeline step a model reached during loading.
type Stage string

const (
	StageResolve   Stage = "resolve"
	StageFetch     Stage = "fetch"
	StageConstruct Stage = "construct"
	StageReady     Stage = "ready"
	StageDuplicate Stage = "duplicate"
)

// LoadOutcome is the per-model result of LoadAll. Err is nil iff Stage is
// StageReady.
type LoadOutcome struct {
	Model    string
	Version  string
	RunID    string
	Path     string
	Stage    Stage
	Err      error
	Duration time.Duration
}

// Loaded reports whether the model made it into the routing table.
func (o LoadOutcome) Loaded() bool { return o.Stage == StageReady && o.Err == nil }

// LoadReport summarizes one LoadAll run in configured order.
type LoadReport struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Outcomes []LoadOutcome
}

// Loaded returns the names that were loaded, in configured order.
func (r LoadReport) Loaded() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Loaded() {
			out = append(out, o.Model)
		}
	}
	return out
}

// Failed returns the outcomes that did not load, in configured order.
func (r LoadReport) Failed() []LoadOutcome {
	var out []LoadOutcome
	for _, o := range r.Outcomes {
		if !o.Loaded() {
			out = append(out, o)
		}
	}
	return out
}
