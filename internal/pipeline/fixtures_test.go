package pipeline

import (
	"testing"

	"go-dataset-workflow/internal/model"
)

// rows builds a dataset from positional values in schema order.
func rows(t *testing.T, schema []string, values ...[]interface{}) *model.Dataset {
	t.Helper()
	records := make([]model.Record, len(values))
	for i, vals := range values {
		if len(vals) != len(schema) {
			t.Fatalf("row %d: %d values for %d fields", i, len(vals), len(schema))
		}
		rec := make(model.Record, len(schema))
		for j, f := range schema {
			rec[f] = vals[j]
		}
		records[i] = rec
	}
	ds, err := model.NewDataset(schema, records)
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	return ds
}

func column(ds *model.Dataset, field string) []interface{} {
	return ds.Column(field)
}

func mortality(t *testing.T) *model.Dataset {
	return rows(t, []string{"Year", "Age_Years", "Deaths", "Population"},
		[]interface{}{1999.0, 1.0, 5.0, 100.0},
		[]interface{}{2000.0, 2.0, nil, 200.0},
		[]interface{}{2001.0, 3.0, 7.0, 300.0},
		[]interface{}{2001.0, 3.0, 7.0, 300.0},
	)
}
