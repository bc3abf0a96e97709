package model

import (
	"encoding/json"
	"time"
)

// Option is a value/label pair as returned by the backend for tables and fields.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FetchRequest selects a remote data source and its credentials.
type FetchRequest struct {
	Source   string `json:"source"` // hmd, cdc
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
	Endpoint string `json:"endpoint,omitempty"` // custom API endpoint
}

// FetchResult is a freshly fetched dataset plus the tables the source exposes.
type FetchResult struct {
	Data     *Dataset               `json:"data"`
	Tables   []Option               `json:"tables"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// DatasetVariables lists a model's variables and the fields of a stored dataset.
type DatasetVariables struct {
	ModelVariables []string `json:"modelVariables"`
	DatasetFields  []string `json:"datasetFields"`
}

// AnalysisRequest asks the backend to fit a model against a dataset.
type AnalysisRequest struct {
	Model   string                 `json:"model"`
	Dataset string                 `json:"dataset,omitempty"`
	Mapping FieldMapping           `json:"mapping,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
	Data    *Dataset               `json:"-"`
}

// AnalysisResult is the backend's opaque result document.
type AnalysisResult struct {
	Results     json.RawMessage `json:"results"`
	CompletedAt time.Time       `json:"completedAt"`
}

// ExportResult describes one saved copy of a dataset.
type ExportResult struct {
	Type        string    `json:"type"` // file, object
	Format      string    `json:"format"`
	Path        string    `json:"path"`
	URL         string    `json:"url,omitempty"`
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// StageRun is the audit entry written for every completed stage transition.
type StageRun struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflowId"`
	Stage       Stage           `json:"stage"`
	Params      json.RawMessage `json:"params,omitempty"`
	Report      json.RawMessage `json:"report,omitempty"`
	RowsIn      int             `json:"rowsIn"`
	RowsOut     int             `json:"rowsOut"`
	Fingerprint string          `json:"fingerprint"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// WorkflowInfo is the persisted header of one workflow session.
type WorkflowInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Stage     Stage     `json:"stage"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WorkflowError is a surfaced error kept for the session history.
type WorkflowError struct {
	WorkflowID string    `json:"workflowId"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}
