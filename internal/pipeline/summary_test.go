package pipeline

import (
	"errors"
	"testing"
)

func TestSummarize(t *testing.T) {
	ds := rows(t, []string{"a", "s"},
		[]interface{}{1, "x"},
		[]interface{}{nil, "y"},
		[]interface{}{3, nil},
	)
	cols := Summarize(ds)
	if len(cols) != 2 {
		t.Fatalf("columns: got %d", len(cols))
	}
	a := cols[0]
	if a.Field != "a" || !a.Numeric || a.Count != 3 || a.Nulls != 1 {
		t.Fatalf("a: got %#v", a)
	}
	if *a.Min != 1 || *a.Max != 3 || *a.Mean != 2 || *a.Sum != 4 {
		t.Fatalf("a stats: min %v max %v mean %v sum %v", *a.Min, *a.Max, *a.Mean, *a.Sum)
	}
	s := cols[1]
	if s.Numeric || s.Nulls != 1 || s.Min != nil {
		t.Fatalf("s: got %#v", s)
	}
	if Summarize(nil) != nil {
		t.Fatalf("nil dataset should have no summary")
	}
}

func TestSummarizeBy(t *testing.T) {
	groups, err := SummarizeBy(mortality(t), "Year")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("groups: got %d", len(groups))
	}
	if groups[0].GroupValue != 1999.0 || groups[2].GroupValue != 2001.0 || groups[2].Records != 2 {
		t.Fatalf("groups should follow first appearance: %#v", groups)
	}
	deaths := groups[1].Columns[2]
	if deaths.Field != "Deaths" || deaths.Nulls != 1 || deaths.Mean != nil {
		t.Fatalf("2000 deaths: got %#v", deaths)
	}
	if *groups[2].Columns[3].Sum != 600 {
		t.Fatalf("2001 population sum: got %v", *groups[2].Columns[3].Sum)
	}

	if _, err := SummarizeBy(mortality(t), "Country"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown field: got %v", err)
	}
	if _, err := SummarizeBy(nil, "Year"); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("no dataset: got %v", err)
	}
}
