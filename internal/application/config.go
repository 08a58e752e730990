package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-agrisense/internal/ports"
)

// EnvPrefix prefixes every environment variable that overrides a
// configuration value.
const EnvPrefix = "AGRISENSE_"

// Config is the complete runtime configuration of the advisory service.
type Config struct {
	// Server configures the HTTP listeners.
	Server ServerConfig `yaml:"server"`

	// Store selects and configures the persistence backend.
	Store StoreConfig `yaml:"store"`

	// AdminID is the deploying identity. It becomes the admin when the
	// store has no admin yet and is ignored afterwards.
	AdminID string `yaml:"admin_id" validate:"required,max=128"`

	// Log configures the zap logger.
	Log LogConfig `yaml:"log"`

	// Tracing configures OpenTelemetry span export.
	Tracing TracingConfig `yaml:"tracing"`

	// SeedFile optionally names a seed file applied at startup.
	SeedFile string `yaml:"seed_file"`
}

// ServerConfig configures the API and metrics listeners.
type ServerConfig struct {
	// Addr is the host:port the JSON API listens on.
	Addr string `yaml:"addr" validate:"required,listenaddr"`

	// MetricsAddr is the host:port serving /metrics. Empty serves metrics
	// on the API listener.
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,listenaddr"`

	// RateLimit bounds the request rate of each caller.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

// RateLimitConfig configures the per-caller token bucket. A zero RPS
// disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" validate:"min=0"`
	Burst int     `yaml:"burst" validate:"min=0"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver" validate:"required,oneof=memory sqlite"`

	// DSN is the SQLite database path. Required for the sqlite driver.
	DSN string `yaml:"dsn" validate:"required_if=Driver sqlite"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Mode is "production" for JSON output or "development" for console
	// output.
	Mode string `yaml:"mode" validate:"oneof=production development"`

	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// TracingConfig configures the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name" validate:"required_if=Enabled true"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"min=0,max=1"`
}

// DefaultConfig returns the configuration used for any value the file and
// environment leave unset.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MetricsAddr:     ":9090",
			RateLimit:       RateLimitConfig{RPS: 20, Burst: 40},
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{Driver: "memory"},
		Log:   LogConfig{Mode: "production", Level: "info"},
		Tracing: TracingConfig{
			ServiceName: "agrisense",
			SampleRatio: 1,
		},
	}
}

var _ ports.ConfigLoader = (*FileConfigLoader)(nil)

// FileConfigLoader loads Config from an optional YAML file, an optional
// .env file and AGRISENSE_* environment variables, in increasing order of
// precedence, and validates the result.
type FileConfigLoader struct {
	// Path is the YAML file. Empty means defaults plus environment only.
	Path string

	// EnvFile is loaded into the process environment before overrides are
	// read. Variables already set are not replaced. A missing file is
	// ignored.
	EnvFile string

	validator *validator.Validate
}

// NewFileConfigLoader creates a loader for path and envFile.
// NewFileConfigLoader returns an error if validator registration fails.
func NewFileConfigLoader(path, envFile string) (*FileConfigLoader, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &FileConfigLoader{Path: path, EnvFile: envFile, validator: v}, nil
}

// Load populates config, which must be a *Config.
func (l *FileConfigLoader) Load(ctx context.Context, config any) error {
	cfg, ok := config.(*Config)
	if !ok {
		return ports.NewConfigError("", fmt.Errorf("unsupported config type %T", config))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	loaded := DefaultConfig()

	if l.Path != "" {
		data, err := os.ReadFile(filepath.Clean(l.Path))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return ports.NewConfigError(l.Path, ports.ErrConfigNotFound)
			}
			return ports.NewConfigError(l.Path, err)
		}
		if err := decodeStrict(data, &loaded); err != nil {
			return ports.NewConfigError(l.Path, err)
		}
	}

	if l.EnvFile != "" {
		if err := godotenv.Load(l.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ports.NewConfigError(l.EnvFile, err)
		}
	}

	if err := applyEnv(&loaded, os.LookupEnv); err != nil {
		return err
	}

	if err := l.validator.Struct(&loaded); err != nil {
		return ports.NewConfigError("config", fmt.Errorf("validation failed: %w", err))
	}

	*cfg = loaded
	return nil
}

// decodeStrict unmarshals YAML into out, failing on unknown fields so that
// typos are not silently ignored. An empty document leaves out unchanged.
func decodeStrict(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("YAML decode failed: %w", err)
	}
	return nil
}

// applyEnv overrides cfg fields from AGRISENSE_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	str("SERVER_ADDR", &cfg.Server.Addr)
	str("METRICS_ADDR", &cfg.Server.MetricsAddr)
	str("STORE_DRIVER", &cfg.Store.Driver)
	str("STORE_DSN", &cfg.Store.DSN)
	str("ADMIN_ID", &cfg.AdminID)
	str("LOG_MODE", &cfg.Log.Mode)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("TRACING_SERVICE_NAME", &cfg.Tracing.ServiceName)
	str("SEED_FILE", &cfg.SeedFile)

	if v, ok := lookup(EnvPrefix + "TRACING_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ports.NewConfigError(EnvPrefix+"TRACING_ENABLED", err)
		}
		cfg.Tracing.Enabled = b
	}
	if v, ok := lookup(EnvPrefix + "RATE_LIMIT_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ports.NewConfigError(EnvPrefix+"RATE_LIMIT_RPS", err)
		}
		cfg.Server.RateLimit.RPS = f
	}
	if v, ok := lookup(EnvPrefix + "RATE_LIMIT_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ports.NewConfigError(EnvPrefix+"RATE_LIMIT_BURST", err)
		}
		cfg.Server.RateLimit.Burst = n
	}
	if v, ok := lookup(EnvPrefix + "SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return ports.NewConfigError(EnvPrefix+"SHUTDOWN_TIMEOUT", err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	return nil
}
