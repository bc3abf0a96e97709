package model

import "time"

// StageMetrics tracks runs of one workflow stage
type StageMetrics struct {
	Stage        string        `json:"stage"`
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	LastStart    time.Time     `json:"last_start"`
	LastEnd      time.Time     `json:"last_end"`
	LastDuration time.Duration `json:"last_duration"`
	TotalTime    time.Duration `json:"total_time"`
	RowsIn       int64         `json:"rows_in"`
	RowsOut      int64         `json:"rows_out"`
	Status       string        `json:"status"` // "running", "completed", "failed"
	LastError    string        `json:"last_error,omitempty"`
}

// WorkflowMetrics represents the tracked timings of a workflow
type WorkflowMetrics struct {
	WorkflowID string                  `json:"workflow_id"`
	StartTime  time.Time               `json:"start_time"`
	Stages     map[string]StageMetrics `json:"stages"`
	ErrorCount int64                   `json:"error_count"`
}
