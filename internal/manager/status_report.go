package manager

import (
	"time"

	"mlserve/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	now := time.Now()
	resp := types.StatusResponse{
		Phase:          string(m.Phase()),
		Models:         []types.ModelStatus{},
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
	r, ok := m.Report()
	if !ok {
		return resp
	}
	resp.LoadRunID = r.RunID
	for _, o := range r.Outcomes {
		resp.Models = append(resp.Models, modelStatus(o))
		if o.Loaded() {
			resp.LoadedCount++
		} else {
			resp.FailedCount++
		}
	}
	return resp
}

// Records flattens the report into one history record per outcome.
func (r LoadReport) Records() []types.LoadRecord {
	out := make([]types.LoadRecord, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		ms := modelStatus(o)
		out = append(out, types.LoadRecord{
			LoadRunID:    r.RunID,
			Model:        ms.Model,
			Version:      ms.Version,
			RunID:        ms.RunID,
			Stage:        ms.Stage,
			Loaded:       ms.Loaded,
			Error:        ms.Error,
			DurationMS:   ms.DurationMS,
			FinishedUnix: r.Finished.Unix(),
		})
	}
	return out
}

func modelStatus(o LoadOutcome) types.ModelStatus {
	ms := types.ModelStatus{
		Model:      o.Model,
		Version:    o.Version,
		RunID:      o.RunID,
		Path:       o.Path,
		Stage:      string(o.Stage),
		Loaded:     o.Loaded(),
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		ms.Error = o.Err.Error()
	}
	return ms
}
