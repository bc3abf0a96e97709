package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// DecodeRows decodes a JSON array of flat objects. Go maps forget key order, so the
// array is walked token by token and the schema is built from the keys in the order
// they first appear. Nested objects and arrays are kept as their raw JSON text.
func DecodeRows(data []byte) ([]string, []Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '['); err != nil {
		return nil, nil, err
	}

	var (
		schema []string
		rows   []Record
	)
	seen := make(map[string]struct{})

	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", len(rows), err)
		}
		rec := make(Record)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: %w", len(rows), err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, nil, fmt.Errorf("row %d: unexpected token %v", len(rows), tok)
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, nil, fmt.Errorf("row %d field %q: %w", len(rows), key, err)
			}
			v, err := scalarFromJSON(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d field %q: %w", len(rows), key, err)
			}
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				schema = append(schema, key)
			}
			rec[key] = v
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", len(rows), err)
		}
		rows = append(rows, rec)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, fmt.Errorf("trailing data after rows")
	}
	return schema, rows, nil
}

// DatasetFromJSON decodes a JSON array of objects into a conforming dataset.
func DatasetFromJSON(data []byte) (*Dataset, error) {
	schema, rows, err := DecodeRows(data)
	if err != nil {
		return nil, err
	}
	return Conform(schema, rows)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func scalarFromJSON(raw json.RawMessage) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return string(raw), nil
	}
	return v, nil
}
