package model

import (
	"reflect"
	"testing"
)

func TestCleaningOptions(t *testing.T) {
	opts := CleaningOptions{RemoveDuplicates: true}.WithDefaults()
	if opts.MissingValueTreatment != MissingNone || opts.OutlierTreatment != OutlierNone || opts.NormalizationMethod != NormalizeNone {
		t.Fatalf("defaults: got %#v", opts)
	}
	if err := opts.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	bad := []CleaningOptions{
		{MissingValueTreatment: "guess", OutlierTreatment: OutlierNone, NormalizationMethod: NormalizeNone},
		{MissingValueTreatment: MissingDrop, OutlierTreatment: "cap", NormalizationMethod: NormalizeNone},
		{MissingValueTreatment: MissingDrop, OutlierTreatment: OutlierClip, NormalizationMethod: "log"},
	}
	for _, o := range bad {
		if err := o.Validate(); err == nil {
			t.Fatalf("%#v: expected an error", o)
		}
	}
}

func TestFilterSpec(t *testing.T) {
	tests := []struct {
		name string
		spec FilterSpec
		ok   bool
	}{
		{"fields", FilterSpec{Fields: []string{"a"}}, true},
		{"range", FilterSpec{Fields: []string{"a"}, StartYear: Year(2000), EndYear: Year(2000)}, true},
		{"no fields", FilterSpec{}, false},
		{"empty field", FilterSpec{Fields: []string{""}}, false},
		{"duplicate", FilterSpec{Fields: []string{"a", "a"}}, false},
		{"inverted range", FilterSpec{Fields: []string{"a"}, StartYear: Year(2001), EndYear: Year(2000)}, false},
	}
	for _, tt := range tests {
		if err := tt.spec.Validate(); (err == nil) != tt.ok {
			t.Fatalf("%s: got %v", tt.name, err)
		}
	}

	open := FilterSpec{StartYear: Year(2000)}
	if !open.HasYearRange() || open.InYearRange(1999) || !open.InYearRange(2050) {
		t.Fatalf("open-ended range")
	}
	if (FilterSpec{}).HasYearRange() {
		t.Fatalf("no bounds means no range")
	}
}

func TestFieldMapping(t *testing.T) {
	m := FieldMapping{"age": "Age", "deaths": "", "years": "Age", "year": "Year"}
	if got := m.SelectedFields([]string{"Year", "Sex", "Age"}); !reflect.DeepEqual(got, []string{"Year", "Age"}) {
		t.Fatalf("selected: got %#v", got)
	}
	if _, ok := m.Lookup("deaths"); ok {
		t.Fatalf("empty field means unmapped")
	}
	if f, ok := m.Lookup("age"); !ok || f != "Age" {
		t.Fatalf("lookup: got %q %v", f, ok)
	}
	cp := m.Clone()
	cp["age"] = "Other"
	if m["age"] != "Age" {
		t.Fatalf("clone shares state")
	}
	if FieldMapping(nil).Clone() != nil {
		t.Fatalf("nil clone should stay nil")
	}
}
