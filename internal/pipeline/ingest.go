package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/pkg/utils"
)

// ------------------- CSV -------------------

// LoadCSV reads a CSV document with a header row. Cells are parsed into numbers where
// possible and empty cells become null. The schema follows the header order.
func LoadCSV(r io.Reader) (*model.Dataset, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV document")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	schema := make([]string, len(headers))
	seen := make(map[string]struct{}, len(headers))
	for i, h := range headers {
		// trim whitespace and stray quotes around header names
		name := strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
		if name == "" {
			return nil, fmt.Errorf("CSV column %d has no name", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("CSV column %q appears twice", name)
		}
		seen[name] = struct{}{}
		schema[i] = name
	}

	var records []model.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV read error: %w", err)
		}
		rec := make(model.Record, len(schema))
		for i, f := range schema {
			rec[f] = utils.ParseValue(row[i])
		}
		records = append(records, rec)
	}
	return model.NewDataset(schema, records)
}

// ------------------- JSON -------------------

// LoadJSON reads a JSON array of flat objects, or a single object as a one-row dataset.
// Records missing a field get null for it.
func LoadJSON(data []byte) (*model.Dataset, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		trimmed = append(append([]byte{'['}, trimmed...), ']')
	}
	ds, err := model.DatasetFromJSON(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JSON rows: %w", err)
	}
	return ds, nil
}

// ------------------- Files and URLs -------------------

// FileSource loads a CSV or JSON dataset from a local path or an http(s) URL.
// The format comes from Format, else from the extension, else CSV.
type FileSource struct {
	Path   string
	Format string
	Client *http.Client
}

// Fetch implements Source.
func (s FileSource) Fetch(ctx context.Context) (*model.FetchResult, error) {
	body, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var ds *model.Dataset
	switch s.format() {
	case "json":
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
		}
		ds, err = LoadJSON(data)
		if err != nil {
			return nil, err
		}
	default:
		ds, err = LoadCSV(body)
		if err != nil {
			return nil, err
		}
	}
	return &model.FetchResult{
		Data:     ds,
		Metadata: map[string]interface{}{"source": s.Path},
	}, nil
}

func (s FileSource) format() string {
	if s.Format != "" {
		return strings.ToLower(s.Format)
	}
	path := s.Path
	if i := strings.IndexAny(path, "?#"); i >= 0 && isURL(path) {
		path = path[:i]
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "csv"
}

func (s FileSource) open(ctx context.Context) (io.ReadCloser, error) {
	if !isURL(s.Path) {
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
		}
		return f, nil
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET %s: %w", s.Path, err)
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", s.Path, resp.StatusCode)
	}
	return resp.Body, nil
}

func isURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}
