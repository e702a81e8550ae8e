// Package config loads certledger settings from a YAML file and
// CERTLEDGER_* environment variables, then validates them against an
// embedded CUE schema.
//
// Precedence, lowest first: Default(), the YAML file, the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/certledger/internal/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CERTLEDGER_"

// DefaultWorkloadSocket is the SPIFFE Workload API socket of a stock SPIRE agent.
const DefaultWorkloadSocket = "unix:///tmp/spire-agent/public/api.sock"

type Config struct {
	Store     StoreConfig     `yaml:"store" json:"store" envPrefix:"STORE_"`
	Server    ServerConfig    `yaml:"server" json:"server" envPrefix:"SERVER_"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging" envPrefix:"LOG_"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry" envPrefix:"OTEL_"`
	Clock     ClockConfig     `yaml:"clock" json:"clock" envPrefix:"CLOCK_"`
}

type StoreConfig struct {
	// Backend is sqlite, redis or memory.
	Backend string      `yaml:"backend" json:"backend" env:"BACKEND"`
	Path    string      `yaml:"path" json:"path" env:"PATH"`
	Redis   RedisConfig `yaml:"redis" json:"redis" envPrefix:"REDIS_"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr" env:"ADDR"`
	Password string `yaml:"password" json:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" json:"db" env:"DB"`
	Prefix   string `yaml:"prefix" json:"prefix" env:"PREFIX"`
}

type ServerConfig struct {
	Listen         string `yaml:"listen" json:"listen" env:"LISTEN"`
	WorkloadSocket string `yaml:"workload_socket" json:"workload_socket" env:"WORKLOAD_SOCKET"`
	// TrustDomain restricts callers to one SPIFFE trust domain. Empty admits
	// any peer the Workload API bundle verifies.
	TrustDomain string `yaml:"trust_domain" json:"trust_domain" env:"TRUST_DOMAIN"`
	// InsecureIdentityHeader serves plain HTTP and takes the caller identity
	// from the X-Certledger-Identity header. Development only.
	InsecureIdentityHeader bool          `yaml:"insecure_identity_header" json:"insecure_identity_header" env:"INSECURE_IDENTITY_HEADER"`
	ShutdownTimeout        time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`
	Format string `yaml:"format" json:"format" env:"FORMAT"`
}

type TelemetryConfig struct {
	// OTLPEndpoint enables tracing when set, e.g. http://localhost:4318.
	OTLPEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint" env:"ENDPOINT"`
	ServiceName  string `yaml:"service_name" json:"service_name" env:"SERVICE_NAME"`
}

type ClockConfig struct {
	// Fixed freezes ledger time at this many seconds when non-zero.
	Fixed uint64 `yaml:"fixed" json:"fixed" env:"FIXED"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend: store.BackendSQLite,
			Path:    "certledger.db",
			Redis:   RedisConfig{Prefix: store.DefaultRedisPrefix},
		},
		Server: ServerConfig{
			Listen:          ":8443",
			WorkloadSocket:  DefaultWorkloadSocket,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Telemetry: TelemetryConfig{
			ServiceName: "certledger",
		},
	}
}

// Load reads path (if non-empty), applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys so typos surface instead of silently
// falling back to defaults. An empty document leaves cfg unchanged.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays CERTLEDGER_* variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// StoreOptions converts the store section for store.Open.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Backend: c.Store.Backend,
		Path:    c.Store.Path,
		Redis: store.RedisOptions{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
			Prefix:   c.Store.Redis.Prefix,
		},
	}
}
