package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"go-dataset-workflow/internal/backend"
	"go-dataset-workflow/internal/objectstore"
	"go-dataset-workflow/pkg/utils"
)

// Config holds runtime configuration for the workflow service and CLI.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	DBPath    string `yaml:"db_path"`
	OutputDir string `yaml:"output_dir"`

	PageSize     int           `yaml:"page_size"`
	YearField    string        `yaml:"year_field"`
	PollInterval time.Duration `yaml:"poll_interval"`

	BackendURL     string              `yaml:"backend_url"`
	BackendTimeout time.Duration       `yaml:"backend_timeout"`
	BackendRetry   backend.RetryConfig `yaml:"backend_retry"`
	// RemoteStages sends filtering, cleaning and uploads to the backend.
	RemoteStages bool `yaml:"remote_stages"`

	ObjectStore objectstore.Config `yaml:"object_store"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		ListenAddr:      ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		DBPath:          "workflows.db",
		OutputDir:       "output",
		PageSize:        10,
		PollInterval:    2 * time.Second,
		BackendTimeout:  60 * time.Second,
		BackendRetry:    backend.DefaultRetryConfig,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// FromEnv loads configuration from environment variables with sensible defaults.
func FromEnv() Config {
	cfg := Defaults()
	cfg.applyEnv()
	return cfg
}

// Load reads the YAML file named by APP_CONFIG_FILE, if any, then lets environment
// variables override it, and validates the result.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadFile overlays the keys present in a YAML file onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getEnv("APP_LISTEN_ADDR", c.ListenAddr)
	c.ReadTimeout = getEnvDuration("APP_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvDuration("APP_WRITE_TIMEOUT", c.WriteTimeout)
	c.ShutdownTimeout = getEnvDuration("APP_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.DBPath = getEnv("APP_DB_PATH", c.DBPath)
	c.OutputDir = getEnv("APP_OUTPUT_DIR", c.OutputDir)
	c.PageSize = getEnvInt("APP_PAGE_SIZE", c.PageSize)
	c.YearField = getEnv("APP_YEAR_FIELD", c.YearField)
	c.PollInterval = getEnvDuration("APP_POLL_INTERVAL", c.PollInterval)
	c.BackendURL = getEnv("APP_BACKEND_URL", c.BackendURL)
	c.BackendTimeout = getEnvDuration("APP_BACKEND_TIMEOUT", c.BackendTimeout)
	c.BackendRetry.MaxAttempts = getEnvInt("APP_BACKEND_MAX_ATTEMPTS", c.BackendRetry.MaxAttempts)
	c.RemoteStages = getEnvBool("APP_REMOTE_STAGES", c.RemoteStages)
	c.ObjectStore.Endpoint = getEnv("APP_S3_ENDPOINT", c.ObjectStore.Endpoint)
	c.ObjectStore.AccessKey = getEnv("APP_S3_ACCESS_KEY", c.ObjectStore.AccessKey)
	c.ObjectStore.SecretKey = getEnv("APP_S3_SECRET_KEY", c.ObjectStore.SecretKey)
	c.ObjectStore.Bucket = getEnv("APP_S3_BUCKET", c.ObjectStore.Bucket)
	c.ObjectStore.Region = getEnv("APP_S3_REGION", c.ObjectStore.Region)
	c.ObjectStore.UseSSL = getEnvBool("APP_S3_USE_SSL", c.ObjectStore.UseSSL)
	c.LogLevel = getEnv("APP_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("APP_LOG_FORMAT", c.LogFormat)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page size must be positive, got %d", c.PageSize))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", c.PollInterval))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.BackendURL != "" {
		if u, err := url.Parse(c.BackendURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("backend url %q must be an http(s) url", c.BackendURL))
		}
	} else if c.RemoteStages {
		errs = append(errs, errors.New("remote stages require a backend url"))
	}
	if c.ObjectStore.Enabled() {
		if err := c.ObjectStore.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// NewLogger builds the slog logger described by the log settings.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}

// getEnvDuration accepts Go durations ("2s") or bare seconds ("2").
func getEnvDuration(key string, def time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return utils.ParseDuration(val, def)
}
