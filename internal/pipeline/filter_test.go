package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"go-dataset-workflow/internal/model"
)

func TestFilterStage_Apply(t *testing.T) {
	ds := rows(t, []string{"Year", "Age", "Deaths"},
		[]interface{}{1999, "0-4", 5},
		[]interface{}{2000, "0-4", 6},
		[]interface{}{"2001", "5-9", 7},
		[]interface{}{nil, "5-9", 8},
		[]interface{}{"n/a", "5-9", 9},
		[]interface{}{2002.0, "10-14", 10},
	)
	before := ds.Clone()

	out, err := FilterStage{}.Apply(ds, model.FilterSpec{
		Fields:    []string{"Deaths", "Year"},
		StartYear: model.Year(2000),
		EndYear:   model.Year(2001),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if want := []string{"Deaths", "Year"}; !reflect.DeepEqual(out.Schema, want) {
		t.Fatalf("schema: got %#v want %#v", out.Schema, want)
	}
	if want := []interface{}{6, 7}; !reflect.DeepEqual(column(out, "Deaths"), want) {
		t.Fatalf("deaths: got %#v want %#v", column(out, "Deaths"), want)
	}
	if !ds.Equal(before) {
		t.Fatalf("input dataset was modified")
	}
}

func TestFilterStage_YearField(t *testing.T) {
	ds := rows(t, []string{"yr", "year_of_birth", "v"},
		[]interface{}{2000, 1950, 1},
		[]interface{}{2010, 1960, 2},
	)
	spec := model.FilterSpec{Fields: []string{"v"}, StartYear: model.Year(2005)}

	// no field named year: the range is ignored
	out, err := FilterStage{}.Apply(ds, spec)
	if err != nil || out.Len() != 2 {
		t.Fatalf("no year column: got %v rows, err %v", out.Len(), err)
	}

	out, err = FilterStage{YearField: "yr"}.Apply(ds, spec)
	if err != nil {
		t.Fatal(err)
	}
	if want := []interface{}{2}; !reflect.DeepEqual(column(out, "v"), want) {
		t.Fatalf("configured year field: got %#v", column(out, "v"))
	}
}

func TestFilterStage_Errors(t *testing.T) {
	ds := rows(t, []string{"Year", "v"}, []interface{}{2000, 1})
	tests := []struct {
		name string
		spec model.FilterSpec
	}{
		{"no fields", model.FilterSpec{}},
		{"unknown field", model.FilterSpec{Fields: []string{"w"}}},
		{"duplicate field", model.FilterSpec{Fields: []string{"v", "v"}}},
		{"inverted range", model.FilterSpec{Fields: []string{"v"}, StartYear: model.Year(2001), EndYear: model.Year(2000)}},
	}
	for _, tt := range tests {
		if _, err := (FilterStage{}).Apply(ds, tt.spec); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: got %v want validation error", tt.name, err)
		}
	}
}

func TestFilterStage_EmptyResultKeepsSchema(t *testing.T) {
	ds := rows(t, []string{"Year", "v"}, []interface{}{1990, 1})
	out, err := FilterStage{}.Apply(ds, model.FilterSpec{Fields: []string{"v"}, StartYear: model.Year(2000)})
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 || !reflect.DeepEqual(out.Schema, []string{"v"}) {
		t.Fatalf("empty result: got %#v", out)
	}
}

func TestFilterStage_AllFieldsNoRange(t *testing.T) {
	ds := mortality(t)
	out, err := FilterStage{}.Apply(ds, model.FilterSpec{Fields: ds.Schema})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out.Equal(ds) {
		t.Fatalf("got %#v want %#v", out, ds)
	}
}
