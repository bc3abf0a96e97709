package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// ErrSchemaMismatch is returned when a record's key set differs from the dataset schema.
var ErrSchemaMismatch = errors.New("record does not match schema")

// Record maps a field name to a scalar value. A nil value means "missing".
type Record map[string]interface{}

// Clone returns a shallow copy of the record. Values are scalars so this is a full copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dataset is an ordered sequence of records sharing one ordered schema.
// Pipeline stages never modify a Dataset they were given; they build a new one.
type Dataset struct {
	Schema  []string `json:"schema"`
	Records []Record `json:"records"`
}

// NewDataset builds a dataset and checks that every record carries exactly the schema's fields.
func NewDataset(schema []string, records []Record) (*Dataset, error) {
	ds := &Dataset{Schema: schema, Records: records}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Conform builds a dataset from loosely shaped rows: fields absent from a row are
// filled with nil, and a field not listed in the schema is rejected.
func Conform(schema []string, rows []Record) (*Dataset, error) {
	index := make(map[string]struct{}, len(schema))
	for _, f := range schema {
		index[f] = struct{}{}
	}
	records := make([]Record, len(rows))
	for i, row := range rows {
		rec := make(Record, len(schema))
		for k, v := range row {
			if _, ok := index[k]; !ok {
				return nil, fmt.Errorf("row %d: field %q: %w", i, k, ErrSchemaMismatch)
			}
			rec[k] = v
		}
		for _, f := range schema {
			if _, ok := rec[f]; !ok {
				rec[f] = nil
			}
		}
		records[i] = rec
	}
	return NewDataset(append([]string(nil), schema...), records)
}

// Validate checks the schema is well formed and every record matches it.
func (d *Dataset) Validate() error {
	seen := make(map[string]struct{}, len(d.Schema))
	for _, f := range d.Schema {
		if f == "" {
			return fmt.Errorf("empty field name in schema")
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("duplicate field %q in schema", f)
		}
		seen[f] = struct{}{}
	}
	for i, rec := range d.Records {
		if len(rec) != len(d.Schema) {
			return fmt.Errorf("record %d has %d fields, schema has %d: %w", i, len(rec), len(d.Schema), ErrSchemaMismatch)
		}
		for _, f := range d.Schema {
			if _, ok := rec[f]; !ok {
				return fmt.Errorf("record %d missing field %q: %w", i, f, ErrSchemaMismatch)
			}
		}
	}
	return nil
}

// Len returns the number of records; a nil dataset has none.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// HasField reports whether name is part of the schema.
func (d *Dataset) HasField(name string) bool {
	return d.FieldIndex(name) >= 0
}

// FieldIndex returns the schema position of name, or -1.
func (d *Dataset) FieldIndex(name string) int {
	if d == nil {
		return -1
	}
	for i, f := range d.Schema {
		if f == name {
			return i
		}
	}
	return -1
}

// Column returns the values of one field in record order.
func (d *Dataset) Column(name string) []interface{} {
	out := make([]interface{}, 0, d.Len())
	for _, rec := range d.Records {
		out = append(out, rec[name])
	}
	return out
}

// Clone deep-copies the dataset.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := &Dataset{
		Schema:  append([]string(nil), d.Schema...),
		Records: make([]Record, len(d.Records)),
	}
	for i, rec := range d.Records {
		out.Records[i] = rec.Clone()
	}
	return out
}

// Equal reports whether both datasets have the same schema order and records.
func (d *Dataset) Equal(o *Dataset) bool {
	if d.Len() != o.Len() {
		return false
	}
	if d == nil || o == nil {
		return d.Len() == 0 && o.Len() == 0
	}
	if !reflect.DeepEqual(d.Schema, o.Schema) {
		return false
	}
	for i := range d.Records {
		if !reflect.DeepEqual(d.Records[i], o.Records[i]) {
			return false
		}
	}
	return true
}

// Values returns the record's values in schema order.
func (d *Dataset) Values(i int) []interface{} {
	rec := d.Records[i]
	out := make([]interface{}, len(d.Schema))
	for j, f := range d.Schema {
		out[j] = rec[f]
	}
	return out
}

// MarshalRows encodes the records as a JSON array of objects whose keys follow the schema order.
func (d *Dataset) MarshalRows() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < d.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, f := range d.Schema {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(d.Records[i][f])
			if err != nil {
				return nil, fmt.Errorf("record %d field %q: %w", i, f, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalJSON keeps field order stable in every encoded record.
func (d Dataset) MarshalJSON() ([]byte, error) {
	schema := d.Schema
	if schema == nil {
		schema = []string{}
	}
	s, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	rows, err := d.MarshalRows()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"schema":`)
	buf.Write(s)
	buf.WriteString(`,"records":`)
	buf.Write(rows)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts {"schema": [...], "records": [...]}. When schema is omitted
// it is derived from the record keys in first-seen order.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var wire struct {
		Schema  []string        `json:"schema"`
		Records json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var (
		schema []string
		rows   []Record
	)
	if len(wire.Records) > 0 && string(wire.Records) != "null" {
		var err error
		schema, rows, err = DecodeRows(wire.Records)
		if err != nil {
			return err
		}
	}
	if wire.Schema != nil {
		schema = wire.Schema
	}
	ds, err := Conform(schema, rows)
	if err != nil {
		return err
	}
	*d = *ds
	return nil
}
