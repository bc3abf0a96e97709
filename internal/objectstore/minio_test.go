package objectstore

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "exports"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no endpoint", mutate: func(c *Config) { c.Endpoint = " " }, wantErr: "endpoint is required"},
		{name: "scheme", mutate: func(c *Config) { c.Endpoint = "http://localhost:9000" }, wantErr: "without scheme"},
		{name: "no keys", mutate: func(c *Config) { c.SecretKey = "" }, wantErr: "secret key"},
		{name: "no bucket", mutate: func(c *Config) { c.Bucket = "" }, wantErr: "bucket is required"},
		{name: "negative ttl", mutate: func(c *Config) { c.PresignTTL = -time.Second }, wantErr: "presign ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Fatalf("empty config should be disabled")
	}
	if !(Config{Endpoint: "minio:9000"}).Enabled() {
		t.Fatalf("config with endpoint should be enabled")
	}
}

func TestNew_BuildsClientWithoutNetwork(t *testing.T) {
	s, err := New(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "exports", Region: "us-east-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.bucket != "exports" || s.ttl != time.Hour {
		t.Fatalf("store: got bucket=%q ttl=%v", s.bucket, s.ttl)
	}
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for empty config")
	}
}

func TestObjectKey(t *testing.T) {
	tests := map[string]string{
		"wf/dataset.csv":      "wf/dataset.csv",
		"/wf//dataset.csv":    "wf/dataset.csv",
		`wf\sub\dataset.json`: "wf/sub/dataset.json",
		"../../etc/passwd":    "etc/passwd",
		"./wf/./a.csv":        "wf/a.csv",
		"":                    "",
	}
	for in, want := range tests {
		if got := ObjectKey(in); got != want {
			t.Fatalf("ObjectKey(%q): got %q want %q", in, got, want)
		}
	}
}
