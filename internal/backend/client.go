// Package backend talks to the analysis backend over its JSON REST API. Every
// failure it returns is a pipeline error of kind backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/internal/pipeline"
)

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Retry     RetryConfig
	Transport http.RoundTripper
}

// Client is a backend API client with retry and backoff.
type Client struct {
	base  *url.URL
	http  *http.Client
	retry RetryConfig
	sleep func(context.Context, time.Duration) error
}

// New creates a client for the backend at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		base:  u,
		http:  &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		retry: cfg.Retry.withDefaults(),
		sleep: sleepContext,
	}, nil
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "malformed response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request, retrying transient failures, and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte, contentType string, out interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return pipeline.BackendError(op, err)
		}
		lastErr = c.once(ctx, method, path, query, body, contentType, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == c.retry.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, c.retry.delay(attempt)); err != nil {
			return pipeline.BackendError(op, err)
		}
	}
	return pipeline.BackendError(op, lastErr)
}

func (c *Client) once(ctx context.Context, method, path string, query url.Values, body []byte, contentType string, out interface{}) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return &statusError{Status: resp.StatusCode, Body: errorMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an error body.
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func (c *Client) postJSON(ctx context.Context, op, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return pipeline.BackendError(op, err)
	}
	return c.do(ctx, op, http.MethodPost, path, nil, body, "application/json", out)
}

// rows decodes a JSON array of records keeping field order.
func rows(raw json.RawMessage) (*model.Dataset, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &model.Dataset{Schema: []string{}, Records: []model.Record{}}, nil
	}
	ds, err := model.DatasetFromJSON(raw)
	if err != nil {
		return nil, &decodeError{err: err}
	}
	return ds, nil
}

type dataResponse struct {
	Data     json.RawMessage        `json:"data"`
	Tables   []model.Option         `json:"tables"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (r dataResponse) result(op string) (*model.FetchResult, error) {
	ds, err := rows(r.Data)
	if err != nil {
		return nil, pipeline.BackendError(op, err)
	}
	return &model.FetchResult{Data: ds, Tables: r.Tables, Metadata: r.Metadata}, nil
}

// FetchData loads a dataset from a named source (hmd, cdc) with its credentials.
func (c *Client) FetchData(ctx context.Context, req model.FetchRequest) (*model.FetchResult, error) {
	const op = "fetch data"
	if req.Source == "" {
		return nil, &pipeline.Error{Kind: pipeline.KindValidation, Op: op, Message: "source is required"}
	}
	var resp dataResponse
	if err := c.postJSON(ctx, op, "/api/fetch-data", req, &resp); err != nil {
		return nil, err
	}
	return resp.result(op)
}

// FetchAPIData loads a dataset from a custom API endpoint through the backend.
func (c *Client) FetchAPIData(ctx context.Context, endpoint string) (*model.FetchResult, error) {
	const op = "fetch api data"
	if endpoint == "" {
		return nil, &pipeline.Error{Kind: pipeline.KindValidation, Op: op, Message: "endpoint is required"}
	}
	var resp dataResponse
	if err := c.postJSON(ctx, op, "/api/fetch-api-data", map[string]string{"endpoint": endpoint}, &resp); err != nil {
		return nil, err
	}
	return resp.result(op)
}

// UploadCSV sends a CSV file to the backend and returns the parsed dataset.
func (c *Client) UploadCSV(ctx context.Context, fileName string, r io.Reader) (*model.FetchResult, error) {
	const op = "upload data"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, pipeline.BackendError(op, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, pipeline.BackendError(op, err)
	}
	if err := mw.Close(); err != nil {
		return nil, pipeline.BackendError(op, err)
	}
	var resp dataResponse
	if err := c.do(ctx, op, http.MethodPost, "/api/upload-custom-data", nil, buf.Bytes(), mw.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return resp.result(op)
}

// LoadDataset loads a stored dataset by id, optionally renamed through mapping.
func (c *Client) LoadDataset(ctx context.Context, datasetID string, mapping model.FieldMapping) (*model.FetchResult, error) {
	const op = "load dataset"
	in := struct {
		DatasetID        string             `json:"datasetId"`
		VariableMappings model.FieldMapping `json:"variableMappings,omitempty"`
	}{datasetID, mapping}
	var resp struct {
		Dataset  json.RawMessage        `json:"dataset"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	if err := c.postJSON(ctx, op, "/api/load-dataset", in, &resp); err != nil {
		return nil, err
	}
	return dataResponse{Data: resp.Dataset, Metadata: resp.Metadata}.result(op)
}

// TableFields lists the selectable fields of a table.
func (c *Client) TableFields(ctx context.Context, table string) ([]model.Option, error) {
	var resp struct {
		Fields []model.Option `json:"fields"`
	}
	if err := c.postJSON(ctx, "get table fields", "/api/get-table-fields", map[string]string{"table": table}, &resp); err != nil {
		return nil, err
	}
	return resp.Fields, nil
}

// DatasetVariables returns the model variables and dataset fields for a stored dataset.
func (c *Client) DatasetVariables(ctx context.Context, datasetID string) (*model.DatasetVariables, error) {
	var resp model.DatasetVariables
	path := "/api/dataset-variables/" + url.PathEscape(datasetID)
	if err := c.do(ctx, "dataset variables", http.MethodGet, path, nil, nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Choices is everything needed to set up the filter and mapping forms.
type Choices struct {
	Fields    []model.Option          `json:"fields"`
	Variables *model.DatasetVariables `json:"variables"`
}

// Choices fetches table fields and dataset variables concurrently.
func (c *Client) Choices(ctx context.Context, table, datasetID string) (*Choices, error) {
	var out Choices
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fields, err := c.TableFields(ctx, table)
		out.Fields = fields
		return err
	})
	g.Go(func() error {
		vars, err := c.DatasetVariables(ctx, datasetID)
		out.Variables = vars
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Filter implements pipeline.Filterer by running the filter on the backend.
// The backend filters its own copy of the selected table.
func (c *Client) Filter(ctx context.Context, _ *model.Dataset, spec model.FilterSpec) (*model.Dataset, error) {
	const op = "apply filters"
	var resp struct {
		FilteredData json.RawMessage `json:"filteredData"`
	}
	if err := c.postJSON(ctx, op, "/api/apply-filters", spec, &resp); err != nil {
		return nil, err
	}
	ds, err := rows(resp.FilteredData)
	if err != nil {
		return nil, pipeline.BackendError(op, err)
	}
	return ds, nil
}

// Clean implements pipeline.Cleaner by sending the dataset to the backend.
func (c *Client) Clean(ctx context.Context, ds *model.Dataset, opts model.CleaningOptions) (*model.Dataset, *model.CleaningReport, error) {
	const op = "clean data"
	data, err := ds.MarshalRows()
	if err != nil {
		return nil, nil, pipeline.BackendError(op, err)
	}
	in := struct {
		Data    json.RawMessage       `json:"data"`
		Options model.CleaningOptions `json:"options"`
	}{data, opts}
	var resp struct {
		CleanedData json.RawMessage       `json:"cleanedData"`
		Report      *model.CleaningReport `json:"report"`
	}
	if err := c.postJSON(ctx, op, "/api/clean-data", in, &resp); err != nil {
		return nil, nil, err
	}
	out, err := rows(resp.CleanedData)
	if err != nil {
		return nil, nil, pipeline.BackendError(op, err)
	}
	return out, resp.Report, nil
}

// RunAnalysis implements pipeline.AnalysisRunner.
func (c *Client) RunAnalysis(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	const op = "run analysis"
	in := struct {
		model.AnalysisRequest
		Data json.RawMessage `json:"data,omitempty"`
	}{AnalysisRequest: req}
	if req.Data != nil {
		data, err := req.Data.MarshalRows()
		if err != nil {
			return nil, pipeline.BackendError(op, err)
		}
		in.Data = data
	}
	var resp struct {
		Results json.RawMessage `json:"results"`
	}
	if err := c.postJSON(ctx, op, "/api/run-analysis", in, &resp); err != nil {
		return nil, err
	}
	return &model.AnalysisResult{Results: resp.Results, CompletedAt: time.Now()}, nil
}

// AnalysisProgress implements pipeline.ProgressReporter. Progress is never retried;
// the next poll asks again.
func (c *Client) AnalysisProgress(ctx context.Context) (int, error) {
	var resp struct {
		Progress float64 `json:"progress"`
	}
	if err := c.once(ctx, http.MethodGet, "/api/analysis-progress", nil, nil, "", &resp); err != nil {
		return 0, pipeline.BackendError("analysis progress", err)
	}
	return int(resp.Progress), nil
}

// SaveDataset stores a dataset on the backend together with its provenance.
func (c *Client) SaveDataset(ctx context.Context, ds *model.Dataset, prov pipeline.Provenance) error {
	const op = "save dataset"
	data, err := ds.MarshalRows()
	if err != nil {
		return pipeline.BackendError(op, err)
	}
	in := struct {
		Data            json.RawMessage        `json:"data"`
		Fields          []string               `json:"fields"`
		CleaningOptions *model.CleaningOptions `json:"cleaningOptions,omitempty"`
	}{data, prov.Fields, prov.CleaningOptions}
	return c.postJSON(ctx, op, "/api/save-dataset", in, nil)
}

// Source returns a pipeline.Source fetching from the backend: by endpoint when
// req.Endpoint is set, else by named source.
func (c *Client) Source(req model.FetchRequest) pipeline.Source {
	return pipeline.SourceFunc(func(ctx context.Context) (*model.FetchResult, error) {
		if req.Endpoint != "" {
			return c.FetchAPIData(ctx, req.Endpoint)
		}
		return c.FetchData(ctx, req)
	})
}
