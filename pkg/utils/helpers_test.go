package utils

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestParseValue(t *testing.T) {
	tests := map[string]interface{}{
		"42":     42,
		" 2.5 ":  2.5,
		"-1e3":   -1000.0,
		"":       nil,
		"   ":    nil,
		"NaN":    "NaN",
		"Inf":    "Inf",
		"abc":    "abc",
		"2000-1": "2000-1",
	}
	for in, want := range tests {
		if got := ParseValue(in); !reflect.DeepEqual(got, want) {
			t.Fatalf("ParseValue(%q): got %#v want %#v", in, got, want)
		}
	}
}

func TestNumeric(t *testing.T) {
	type celsius float32
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{1, 1, true},
		{int64(7), 7, true},
		{2.5, 2.5, true},
		{json.Number("3"), 3, true},
		{celsius(1.5), 1.5, true},
		{uint8(4), 4, true},
		{"3", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := Numeric(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("Numeric(%#v): got %v %v", tt.in, got, ok)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{3, "3"},
		{2.50, "2.5"},
		{1e6, "1000000"},
		{false, "false"},
		{int64(9), "9"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Fatalf("FormatValue(%#v): got %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	if got := ParseDuration("3s", time.Minute); got != 3*time.Second {
		t.Fatalf("valid: got %s", got)
	}
	if got := ParseDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("invalid should fall back: got %s", got)
	}
}
