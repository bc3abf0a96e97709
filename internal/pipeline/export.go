package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/pkg/utils"
)

// Export targets.
const (
	TargetFile   = "file"
	TargetBucket = "bucket"
)

// Provenance travels with a saved dataset so it can be traced back to the stage,
// the selected fields and the cleaning options that produced it.
type Provenance struct {
	WorkflowID      string                 `json:"workflowId"`
	Stage           model.Stage            `json:"stage"`
	Fields          []string               `json:"fields"`
	FilterSpec      *model.FilterSpec      `json:"filterSpec,omitempty"`
	CleaningOptions *model.CleaningOptions `json:"cleaningOptions,omitempty"`
	Fingerprint     string                 `json:"fingerprint"`
}

// ExportRequest selects format, destination and base name of a saved dataset.
type ExportRequest struct {
	Format string `json:"format"` // csv (default), json
	Target string `json:"target"` // file (default), bucket
	Name   string `json:"name"`   // base name without extension, default "dataset"
}

func (r ExportRequest) withDefaults() ExportRequest {
	if r.Format == "" {
		r.Format = "csv"
	}
	r.Format = strings.ToLower(r.Format)
	if r.Target == "" {
		r.Target = TargetFile
	}
	if r.Name == "" {
		r.Name = "dataset"
	}
	return r
}

func (r ExportRequest) validate() error {
	switch r.Format {
	case "csv", "json":
	default:
		return fmt.Errorf("unsupported export format %q", r.Format)
	}
	switch r.Target {
	case TargetFile, TargetBucket:
	default:
		return fmt.Errorf("unsupported export target %q", r.Target)
	}
	if strings.ContainsAny(r.Name, `/\`) || r.Name == "." || r.Name == ".." {
		return fmt.Errorf("invalid export name %q", r.Name)
	}
	return nil
}

// FileName is the name the export is stored under.
func (r ExportRequest) FileName() string {
	return r.Name + "." + r.Format
}

// Sink stores an encoded export outside the local output directory.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Exporter saves datasets to the output directory or to a Sink.
type Exporter struct {
	Output *utils.OutputManager
	Sink   Sink
	now    func() time.Time
}

// NewExporter creates an exporter; sink may be nil when no bucket is configured.
func NewExporter(output *utils.OutputManager, sink Sink) *Exporter {
	return &Exporter{Output: output, Sink: sink, now: time.Now}
}

// Export encodes ds and stores it. A failed write is reported both in the result and as error.
func (e *Exporter) Export(ctx context.Context, ds *model.Dataset, prov Provenance, req ExportRequest) (*model.ExportResult, error) {
	const op = "export"
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Err: err}
	}
	if ds == nil {
		return nil, newError(KindPrecondition, op, "no dataset loaded")
	}

	var buf bytes.Buffer
	var err error
	if req.Format == "json" {
		err = WriteJSON(&buf, ds, prov)
	} else {
		err = WriteCSV(&buf, ds)
	}
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Message: "encode dataset", Err: err}
	}

	res := &model.ExportResult{
		Type:        req.Target,
		Format:      req.Format,
		RecordCount: ds.Len(),
		Timestamp:   e.now(),
	}
	switch req.Target {
	case TargetBucket:
		err = e.toBucket(ctx, prov.WorkflowID, req, buf.Bytes(), res)
	default:
		err = e.toFile(prov.WorkflowID, req, buf.Bytes(), res)
	}
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	res.Success = true
	return res, nil
}

func (e *Exporter) toFile(workflowID string, req ExportRequest, data []byte, res *model.ExportResult) error {
	if e.Output == nil {
		return newError(KindPrecondition, "export", "no output directory configured")
	}
	path, err := e.Output.FilePath(workflowID, req.FileName())
	if err != nil {
		return fmt.Errorf("failed to prepare export path: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	res.Path = path
	res.URL = e.Output.DownloadURL(workflowID, req.FileName())
	return nil
}

func (e *Exporter) toBucket(ctx context.Context, workflowID string, req ExportRequest, data []byte, res *model.ExportResult) error {
	if e.Sink == nil {
		return newError(KindPrecondition, "export", "no object store configured")
	}
	key := workflowID + "/" + req.FileName()
	contentType := "text/csv"
	if req.Format == "json" {
		contentType = "application/json"
	}
	url, err := e.Sink.Put(ctx, key, data, contentType)
	if err != nil {
		return BackendError("export", err)
	}
	res.Path = key
	res.URL = url
	return nil
}

// WriteCSV writes a header row in schema order, then one row per record. Nulls are empty cells.
func WriteCSV(w io.Writer, ds *model.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Schema); err != nil {
		return err
	}
	row := make([]string, len(ds.Schema))
	for _, rec := range ds.Records {
		for i, f := range ds.Schema {
			row[i] = utils.FormatValue(rec[f])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes {"data": [...], "provenance": {...}} with record keys in schema order.
func WriteJSON(w io.Writer, ds *model.Dataset, prov Provenance) error {
	rows, err := ds.MarshalRows()
	if err != nil {
		return err
	}
	doc := struct {
		Data       json.RawMessage `json:"data"`
		Provenance Provenance      `json:"provenance"`
	}{Data: rows, Provenance: prov}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
