package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestConform(t *testing.T) {
	ds, err := Conform([]string{"a", "b"}, []Record{{"a": 1}, {"b": "x", "a": 2}})
	if err != nil {
		t.Fatalf("conform: %v", err)
	}
	want := []Record{{"a": 1, "b": nil}, {"a": 2, "b": "x"}}
	if !reflect.DeepEqual(ds.Records, want) {
		t.Fatalf("records: got %#v want %#v", ds.Records, want)
	}
	if _, err := Conform([]string{"a"}, []Record{{"c": 1}}); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("extra field: got %v", err)
	}
}

func TestDatasetValidate(t *testing.T) {
	tests := []struct {
		name string
		ds   Dataset
		ok   bool
	}{
		{"valid", Dataset{Schema: []string{"a"}, Records: []Record{{"a": nil}}}, true},
		{"empty schema and rows", Dataset{}, true},
		{"duplicate field", Dataset{Schema: []string{"a", "a"}}, false},
		{"empty field", Dataset{Schema: []string{""}}, false},
		{"missing field", Dataset{Schema: []string{"a", "b"}, Records: []Record{{"a": 1}}}, false},
		{"other field", Dataset{Schema: []string{"a"}, Records: []Record{{"b": 1}}}, false},
	}
	for _, tt := range tests {
		if err := tt.ds.Validate(); (err == nil) != tt.ok {
			t.Fatalf("%s: got %v", tt.name, err)
		}
	}
}

func TestDatasetCloneAndEqual(t *testing.T) {
	ds, err := NewDataset([]string{"a"}, []Record{{"a": 1}})
	if err != nil {
		t.Fatal(err)
	}
	cp := ds.Clone()
	if !ds.Equal(cp) {
		t.Fatalf("clone should be equal")
	}
	cp.Records[0]["a"] = 2
	cp.Schema[0] = "z"
	if ds.Records[0]["a"] != 1 || ds.Schema[0] != "a" {
		t.Fatalf("clone shares state with the original")
	}
	if ds.Equal(cp) {
		t.Fatalf("changed clone should differ")
	}

	var empty *Dataset
	if !empty.Equal(&Dataset{}) || empty.Len() != 0 || empty.HasField("a") {
		t.Fatalf("nil dataset helpers")
	}
}

func TestDatasetJSON(t *testing.T) {
	ds, err := NewDataset([]string{"z", "a"}, []Record{{"z": 1, "a": nil}})
	if err != nil {
		t.Fatal(err)
	}
	rows, err := ds.MarshalRows()
	if err != nil {
		t.Fatal(err)
	}
	if string(rows) != `[{"z":1,"a":null}]` {
		t.Fatalf("rows should keep schema order: got %s", rows)
	}
	doc, err := json.Marshal(ds)
	if err != nil {
		t.Fatal(err)
	}
	if string(doc) != `{"schema":["z","a"],"records":[{"z":1,"a":null}]}` {
		t.Fatalf("document: got %s", doc)
	}

	var empty Dataset
	if doc, _ := json.Marshal(empty); string(doc) != `{"schema":[],"records":[]}` {
		t.Fatalf("empty document: got %s", doc)
	}
}

func TestDatasetUnmarshalJSON(t *testing.T) {
	var ds Dataset
	if err := json.Unmarshal([]byte(`{"records":[{"y":2000,"d":{"k":1}},{"x":true}]}`), &ds); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(ds.Schema, []string{"y", "d", "x"}) {
		t.Fatalf("derived schema: got %#v", ds.Schema)
	}
	if ds.Records[0]["d"] != `{"k":1}` || ds.Records[1]["y"] != nil {
		t.Fatalf("records: got %#v", ds.Records)
	}

	var explicit Dataset
	if err := json.Unmarshal([]byte(`{"schema":["b","a"],"records":[{"a":1}]}`), &explicit); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(explicit.Schema, []string{"b", "a"}) || explicit.Records[0]["b"] != nil {
		t.Fatalf("explicit schema: got %#v", explicit)
	}
	if err := json.Unmarshal([]byte(`{"schema":["a"],"records":[{"c":1}]}`), &explicit); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("mismatch: got %v", err)
	}
}

func TestStageText(t *testing.T) {
	for _, s := range []Stage{StageEmpty, StageLoaded, StageFiltered, StageCleaned} {
		text, _ := s.MarshalText()
		var back Stage
		if err := back.UnmarshalText(text); err != nil || back != s {
			t.Fatalf("%s: got %s, %v", text, back, err)
		}
	}
	var s Stage
	if err := s.UnmarshalText([]byte("exported")); err == nil {
		t.Fatalf("unknown stage should fail")
	}
	if Stage(9).String() != "stage(9)" {
		t.Fatalf("out of range: got %q", Stage(9).String())
	}
}
