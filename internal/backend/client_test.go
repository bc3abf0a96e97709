package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/internal/pipeline"
)

func newTestClient(t *testing.T, h http.Handler, attempts int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second, Retry: RetryConfig{MaxAttempts: attempts}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"", "ftp://x", "::"} {
		if _, err := New(Config{BaseURL: u}); err == nil {
			t.Fatalf("New(%q): expected error", u)
		}
	}
}

func TestFetchData_KeepsFieldOrder(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/fetch-data" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req model.FetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Source != "hmd" || req.Username != "u" {
			t.Errorf("unexpected request body %#v", req)
		}
		io.WriteString(w, `{"data":[{"year":2000,"age":1,"rate":0.5},{"year":2001,"age":2}],
			"tables":[{"value":"mx","label":"Death rates"}]}`)
	}), 1)

	res, err := c.FetchData(context.Background(), model.FetchRequest{Source: "hmd", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("FetchData: %v", err)
	}
	if want := []string{"year", "age", "rate"}; !reflect.DeepEqual(res.Data.Schema, want) {
		t.Fatalf("schema: got %#v want %#v", res.Data.Schema, want)
	}
	if res.Data.Len() != 2 || res.Data.Records[1]["rate"] != nil {
		t.Fatalf("records: got %#v", res.Data.Records)
	}
	if want := []model.Option{{Value: "mx", Label: "Death rates"}}; !reflect.DeepEqual(res.Tables, want) {
		t.Fatalf("tables: got %#v want %#v", res.Tables, want)
	}
}

func TestFetchData_RequiresSource(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.NotFoundHandler(), 1)
	_, err := c.FetchData(context.Background(), model.FetchRequest{})
	if !errors.Is(err, pipeline.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var hits int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"fields":[{"value":"age","label":"Age"}]}`)
	}), 3)

	fields, err := c.TableFields(context.Background(), "mx")
	if err != nil {
		t.Fatalf("TableFields: %v", err)
	}
	if len(fields) != 1 || fields[0].Value != "age" {
		t.Fatalf("fields: got %#v", fields)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits: got %d want 3", got)
	}
}

func TestDo_NoRetryOnClientError(t *testing.T) {
	t.Parallel()

	var hits int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"unknown table"}`)
	}), 3)

	_, err := c.TableFields(context.Background(), "nope")
	if !errors.Is(err, pipeline.ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown table") {
		t.Fatalf("error should carry the backend message, got %q", err.Error())
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("hits: got %d want 1", got)
	}
}

func TestDo_MalformedJSONIsBackendError(t *testing.T) {
	t.Parallel()

	var hits int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		io.WriteString(w, `{"filteredData": [1, 2`)
	}), 3)

	_, err := c.Filter(context.Background(), nil, model.FilterSpec{Fields: []string{"age"}})
	if pipeline.KindOf(err) != pipeline.KindBackend {
		t.Fatalf("expected backend error, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("malformed responses should not be retried, hits=%d", got)
	}
}

func TestFilter_SendsSpec(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var spec model.FilterSpec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			t.Errorf("decode: %v", err)
		}
		if spec.Table != "mx" || spec.StartYear == nil || *spec.StartYear != 2000 || spec.EndYear != nil {
			t.Errorf("unexpected spec %#v", spec)
		}
		io.WriteString(w, `{"filteredData":[{"age":1,"year":2000}]}`)
	}), 1)

	out, err := c.Filter(context.Background(), nil, model.FilterSpec{Table: "mx", Fields: []string{"age", "year"}, StartYear: model.Year(2000)})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if want := []string{"age", "year"}; !reflect.DeepEqual(out.Schema, want) {
		t.Fatalf("schema: got %#v want %#v", out.Schema, want)
	}
}

func TestClean_RoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Data    []map[string]interface{} `json:"data"`
			Options model.CleaningOptions    `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(in.Data) != 2 || in.Options.MissingValueTreatment != model.MissingDrop {
			t.Errorf("unexpected body %#v", in)
		}
		io.WriteString(w, `{"cleanedData":[{"a":1}],"report":{"rowsBefore":2,"rowsAfter":1}}`)
	}), 1)

	ds := &model.Dataset{Schema: []string{"a"}, Records: []model.Record{{"a": 1.0}, {"a": nil}}}
	out, report, err := c.Clean(context.Background(), ds, model.CleaningOptions{MissingValueTreatment: model.MissingDrop})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if out.Len() != 1 {
		t.Fatalf("rows: got %d want 1", out.Len())
	}
	if report == nil || report.RowsBefore != 2 || report.RowsAfter != 1 {
		t.Fatalf("report: got %#v", report)
	}
}

func TestChoices_FetchesBoth(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/get-table-fields":
			io.WriteString(w, `{"fields":[{"value":"Age_Years","label":"Age"}]}`)
		case "/api/dataset-variables/ds-1":
			io.WriteString(w, `{"modelVariables":["age"],"datasetFields":["Age_Years"]}`)
		default:
			http.NotFound(w, r)
		}
	}), 1)

	got, err := c.Choices(context.Background(), "mx", "ds-1")
	if err != nil {
		t.Fatalf("Choices: %v", err)
	}
	if len(got.Fields) != 1 || got.Variables == nil || !reflect.DeepEqual(got.Variables.ModelVariables, []string{"age"}) {
		t.Fatalf("choices: got %#v", got)
	}
}

func TestRunAnalysis_WithProgress(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/analysis-progress":
			io.WriteString(w, `{"progress":40}`)
		case "/api/run-analysis":
			<-release
			io.WriteString(w, `{"results":{"fit":0.9}}`)
		}
	}), 1)

	h := pipeline.StartAnalysis(context.Background(), c, model.AnalysisRequest{Model: "lee-carter"}, 5*time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for h.Progress().Percent != 40 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	got := h.Progress().Percent
	close(release)
	if got != 40 {
		t.Fatalf("progress: got %d want 40", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if string(res.Results) != `{"fit":0.9}` {
		t.Fatalf("results: got %s", res.Results)
	}
	if h.Progress().Percent != 100 {
		t.Fatalf("finished analysis should read 100%%")
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.DatasetVariables(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetryConfig_Delay(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffMultiplier: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond},
		{10, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := cfg.delay(tt.attempt); got != tt.want {
			t.Fatalf("delay(%d): got %v want %v", tt.attempt, got, tt.want)
		}
	}
}
