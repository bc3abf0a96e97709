package pipeline

import (
	"sync"
	"time"

	"go-dataset-workflow/internal/model"
)

// Tracker collects per-stage timings and row counts for one workflow.
type Tracker struct {
	mu      sync.RWMutex
	metrics model.WorkflowMetrics
	now     func() time.Time
}

// NewTracker creates a tracker for the given workflow id.
func NewTracker(workflowID string) *Tracker {
	return &Tracker{
		metrics: model.WorkflowMetrics{
			WorkflowID: workflowID,
			StartTime:  time.Now(),
			Stages:     make(map[string]model.StageMetrics),
		},
		now: time.Now,
	}
}

// StartStage marks the start of a stage run and returns its start time.
func (t *Tracker) StartStage(stage string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	m := t.metrics.Stages[stage]
	m.Stage = stage
	m.LastStart = now
	m.Status = "running"
	t.metrics.Stages[stage] = m
	return now
}

// EndStage records the outcome of a stage run started at start.
func (t *Tracker) EndStage(stage string, start time.Time, rowsIn, rowsOut int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	m := t.metrics.Stages[stage]
	m.Stage = stage
	m.Runs++
	m.LastEnd = now
	m.LastDuration = now.Sub(start)
	m.TotalTime += m.LastDuration
	if err != nil {
		m.Failures++
		m.Status = "failed"
		m.LastError = err.Error()
		t.metrics.ErrorCount++
	} else {
		m.Status = "completed"
		m.LastError = ""
		m.RowsIn += int64(rowsIn)
		m.RowsOut += int64(rowsOut)
	}
	t.metrics.Stages[stage] = m
}

// Metrics returns a copy of the current metrics.
func (t *Tracker) Metrics() model.WorkflowMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := t.metrics
	out.Stages = make(map[string]model.StageMetrics, len(t.metrics.Stages))
	for k, v := range t.metrics.Stages {
		out.Stages[k] = v
	}
	return out
}
