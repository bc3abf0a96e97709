package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/pkg/utils"
)

type fakeSink struct {
	key, contentType string
	data             []byte
	err              error
}

func (s *fakeSink) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.key, s.contentType, s.data = key, contentType, data
	return "http://bucket.local/" + key, nil
}

func newTestExporter(t *testing.T, sink Sink) *Exporter {
	e := NewExporter(utils.NewOutputManager(t.TempDir()), sink)
	e.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func exportData(t *testing.T) (*model.Dataset, Provenance) {
	ds := rows(t, []string{"a", "b"},
		[]interface{}{1, "x,y"},
		[]interface{}{nil, "z"},
	)
	return ds, Provenance{WorkflowID: "wf", Stage: model.StageCleaned, Fields: ds.Schema, Fingerprint: Fingerprint(ds)}
}

func TestExport_CSVFile(t *testing.T) {
	ds, prov := exportData(t)
	res, err := newTestExporter(t, nil).Export(context.Background(), ds, prov, ExportRequest{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !res.Success || res.RecordCount != 2 || res.Type != TargetFile || res.URL != "/api/v1/download/wf/dataset.csv" {
		t.Fatalf("result: got %#v", res)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := "a,b\n1,\"x,y\"\n,z\n"; string(data) != want {
		t.Fatalf("csv: got %q want %q", data, want)
	}
}

func TestExport_JSONFile(t *testing.T) {
	ds, prov := exportData(t)
	res, err := newTestExporter(t, nil).Export(context.Background(), ds, prov, ExportRequest{Format: "JSON", Name: "final"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc struct {
		Data       []map[string]interface{} `json:"data"`
		Provenance Provenance               `json:"provenance"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Data) != 2 || doc.Data[1]["a"] != nil || doc.Provenance.Stage != model.StageCleaned || doc.Provenance.Fingerprint != prov.Fingerprint {
		t.Fatalf("document: got %#v", doc)
	}
	if res.URL != "/api/v1/download/wf/final.json" {
		t.Fatalf("url: got %q", res.URL)
	}
}

func TestExport_Bucket(t *testing.T) {
	ds, prov := exportData(t)
	sink := &fakeSink{}
	res, err := newTestExporter(t, sink).Export(context.Background(), ds, prov, ExportRequest{Format: "json", Target: TargetBucket})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if sink.key != "wf/dataset.json" || sink.contentType != "application/json" || len(sink.data) == 0 {
		t.Fatalf("sink: got %q %q", sink.key, sink.contentType)
	}
	if res.URL != "http://bucket.local/wf/dataset.json" || res.Path != sink.key {
		t.Fatalf("result: got %#v", res)
	}

	sink.err = errors.New("access denied")
	res, err = newTestExporter(t, sink).Export(context.Background(), ds, prov, ExportRequest{Target: TargetBucket})
	if !errors.Is(err, ErrBackend) || res == nil || res.Success || res.Error == "" {
		t.Fatalf("failing sink: %v %#v", err, res)
	}
}

func TestExport_Errors(t *testing.T) {
	ds, prov := exportData(t)
	tests := []struct {
		name string
		ds   *model.Dataset
		req  ExportRequest
		want error
	}{
		{"format", ds, ExportRequest{Format: "xml"}, ErrValidation},
		{"target", ds, ExportRequest{Target: "ftp"}, ErrValidation},
		{"name", ds, ExportRequest{Name: "../up"}, ErrValidation},
		{"no dataset", nil, ExportRequest{}, ErrPrecondition},
		{"no sink", ds, ExportRequest{Target: TargetBucket}, ErrPrecondition},
	}
	for _, tt := range tests {
		if _, err := newTestExporter(t, nil).Export(context.Background(), tt.ds, prov, tt.req); !errors.Is(err, tt.want) {
			t.Fatalf("%s: got %v want %v", tt.name, err, tt.want)
		}
	}
}
