package pipeline

import (
	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/pkg/utils"
)

// Summarize describes every column of ds in schema order. Numeric columns also get
// min, max, mean and sum over their numeric values.
func Summarize(ds *model.Dataset) []model.ColumnSummary {
	if ds == nil {
		return nil
	}
	return summarizeRecords(ds.Schema, ds.Records, numericColumns(ds))
}

func summarizeRecords(schema []string, records []model.Record, numeric map[string]bool) []model.ColumnSummary {
	out := make([]model.ColumnSummary, 0, len(schema))
	for _, f := range schema {
		cs := model.ColumnSummary{Field: f, Count: len(records), Numeric: numeric[f]}
		for _, rec := range records {
			if isMissing(rec[f], cs.Numeric) {
				cs.Nulls++
			}
		}
		if cs.Numeric {
			if xs := numericValues(records, f); len(xs) > 0 {
				lo, hi := minMax(xs)
				m := mean(xs)
				var sum float64
				for _, x := range xs {
					sum += x
				}
				cs.Min, cs.Max, cs.Mean, cs.Sum = &lo, &hi, &m, &sum
			}
		}
		out = append(out, cs)
	}
	return out
}

// SummarizeBy splits ds by the value of groupBy and summarizes each group. Groups are
// returned in order of first appearance; records with a null group value share one group.
func SummarizeBy(ds *model.Dataset, groupBy string) ([]model.GroupSummary, error) {
	const op = "summary"
	if ds == nil {
		return nil, newError(KindPrecondition, op, "no dataset loaded")
	}
	if !ds.HasField(groupBy) {
		return nil, newError(KindValidation, op, "group field %q is not in the dataset", groupBy)
	}

	type group struct {
		value   interface{}
		records []model.Record
	}
	var order []string
	groups := make(map[string]*group)
	for _, rec := range ds.Records {
		v := rec[groupBy]
		key := "null"
		if v != nil {
			key = utils.FormatValue(v)
		}
		g, ok := groups[key]
		if !ok {
			g = &group{value: v}
			groups[key] = g
			order = append(order, key)
		}
		g.records = append(g.records, rec)
	}

	numeric := numericColumns(ds)
	out := make([]model.GroupSummary, 0, len(order))
	for _, key := range order {
		g := groups[key]
		out = append(out, model.GroupSummary{
			GroupKey:   groupBy,
			GroupValue: g.value,
			Records:    len(g.records),
			Columns:    summarizeRecords(ds.Schema, g.records, numeric),
		})
	}
	return out, nil
}
