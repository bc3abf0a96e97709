package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"go-dataset-workflow/internal/model"
)

func TestSuggestMapping(t *testing.T) {
	tests := []struct {
		name   string
		vars   []string
		fields []string
		want   model.FieldMapping
	}{
		{
			name:   "substring match and unmapped variable",
			vars:   []string{"age", "mortality_rate"},
			fields: []string{"Year", "Age_Years", "Deaths"},
			want:   model.FieldMapping{"age": "Age_Years", "mortality_rate": ""},
		},
		{
			name:   "field contained in variable",
			vars:   []string{"deaths_total"},
			fields: []string{"Year", "DEATHS"},
			want:   model.FieldMapping{"deaths_total": "DEATHS"},
		},
		{
			name:   "word order differs",
			vars:   []string{"age", "mortality_rate"},
			fields: []string{"Age_Years", "Rate_Mortality", "Region"},
			want:   model.FieldMapping{"age": "Age_Years", "mortality_rate": ""},
		},
		{
			name:   "first field in order wins",
			vars:   []string{"age"},
			fields: []string{"Average", "Age_Years"},
			want:   model.FieldMapping{"age": "Average"},
		},
		{
			name:   "first field in order wins reversed",
			vars:   []string{"age"},
			fields: []string{"Age_Years", "Average"},
			want:   model.FieldMapping{"age": "Age_Years"},
		},
		{
			name:   "several variables may share a field",
			vars:   []string{"year", "years"},
			fields: []string{"Year"},
			want:   model.FieldMapping{"year": "Year", "years": "Year"},
		},
		{
			name:   "no fields",
			vars:   []string{"age"},
			fields: nil,
			want:   model.FieldMapping{"age": ""},
		},
	}
	for _, tt := range tests {
		got := SuggestMapping(tt.vars, tt.fields)
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s: got %#v want %#v", tt.name, got, tt.want)
		}
	}
}

func TestApplyMapping(t *testing.T) {
	fields := []string{"Year", "Deaths"}
	in := model.FieldMapping{"year": "Year", "rate": ""}

	got, err := ApplyMapping(in, fields)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("apply: got %#v want %#v", got, in)
	}
	got["year"] = "Deaths"
	if in["year"] != "Year" {
		t.Fatalf("result must be a copy")
	}

	for _, bad := range []model.FieldMapping{
		{"year": "Nope"},
		{"": "Year"},
	} {
		if _, err := ApplyMapping(bad, fields); !errors.Is(err, ErrInvalidMapping) {
			t.Fatalf("%#v: got %v want invalid mapping", bad, err)
		}
	}
}
