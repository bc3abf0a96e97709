package pipeline

import (
	"context"
	"strings"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/pkg/utils"
)

// DefaultYearField is matched case-insensitively against the schema.
const DefaultYearField = "year"

// Filterer produces a filtered dataset. FilterStage is the local implementation;
// the backend client provides a remote one.
type Filterer interface {
	Filter(ctx context.Context, ds *model.Dataset, spec model.FilterSpec) (*model.Dataset, error)
}

// FilterStage projects a dataset onto selected fields and an optional year range.
type FilterStage struct {
	// YearField names the year column. Empty means the first schema field equal
	// to "year" ignoring case.
	YearField string
}

// Filter implements Filterer.
func (s FilterStage) Filter(_ context.Context, ds *model.Dataset, spec model.FilterSpec) (*model.Dataset, error) {
	return s.Apply(ds, spec)
}

// Apply returns a new dataset whose schema is exactly spec.Fields in their given order.
// With a year range set and a year column present, records whose year is missing,
// non-numeric or out of range are dropped. Record order is preserved.
func (s FilterStage) Apply(ds *model.Dataset, spec model.FilterSpec) (*model.Dataset, error) {
	const op = "filter"
	if err := spec.Validate(); err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Err: err}
	}
	if ds == nil {
		return nil, newError(KindValidation, op, "no dataset loaded")
	}
	for _, f := range spec.Fields {
		if !ds.HasField(f) {
			return nil, newError(KindValidation, op, "field %q is not in the dataset", f)
		}
	}

	yearField := s.resolveYearField(ds.Schema)
	yearActive := yearField != "" && spec.HasYearRange()

	fields := append([]string(nil), spec.Fields...)
	records := make([]model.Record, 0, ds.Len())
	for _, rec := range ds.Records {
		if yearActive {
			year, ok := yearValue(rec[yearField])
			if !ok || !spec.InYearRange(year) {
				continue
			}
		}
		out := make(model.Record, len(fields))
		for _, f := range fields {
			out[f] = rec[f]
		}
		records = append(records, out)
	}
	return &model.Dataset{Schema: fields, Records: records}, nil
}

func (s FilterStage) resolveYearField(schema []string) string {
	want := s.YearField
	if want != "" {
		for _, f := range schema {
			if f == want {
				return f
			}
		}
		return ""
	}
	for _, f := range schema {
		if strings.EqualFold(f, DefaultYearField) {
			return f
		}
	}
	return ""
}

func yearValue(v interface{}) (float64, bool) {
	if f, ok := utils.Numeric(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		return utils.ParseNumber(s)
	}
	return 0, false
}
