// Package config loads and validates the control plane configuration from
// environment variables. All settings have sensible defaults so the binary
// works out of the box for local development without any .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the control plane. Values are
// loaded once at startup via Load() and then treated as immutable.
type Config struct {
	// XDSAddr is the gRPC listen address for the ADS/SDS server. Proxies
	// connect here to receive dynamic configuration.
	XDSAddr string

	// ALSAddr is the gRPC listen address for the Access Log Service sink.
	ALSAddr string

	// ExtProcAddr is the gRPC listen address for the External Processing
	// sidechannel used for learning-session body capture.
	ExtProcAddr string

	// APIAddr is the HTTP listen address for the REST management API.
	APIAddr string

	// DatabaseURL is a libpq-style connection string for the primary store.
	DatabaseURL string

	// BootstrapToken seeds the first admin PersonalAccessToken. Required,
	// validated by internal/bootstrap (>=32 chars, not a known placeholder).
	BootstrapToken string

	// FilterSchemaDir holds JSON-Schema descriptors for dynamically
	// registered (non-built-in) filter types, loaded into the
	// filters.SchemaRegistry at startup.
	FilterSchemaDir string

	// XDSDebounce is the coalescing window for rapid successive xDS
	// snapshot rebuilds (spec.md 4.6 "Batching & coalescing").
	XDSDebounce time.Duration

	// AccessLogQueueSize bounds the access-log worker pool's input channel.
	AccessLogQueueSize int

	// AccessLogWorkers is the number of access-log worker goroutines.
	// Zero means runtime.NumCPU().
	AccessLogWorkers int
}

// Load reads configuration from environment variables, applying defaults
// suitable for local development. It does not validate BootstrapToken;
// that belongs to internal/bootstrap, which runs after DB connectivity is
// established.
func Load() (*Config, error) {
	debounceMS, err := getEnvInt("XDS_DEBOUNCE_MS", 50)
	if err != nil {
		return nil, err
	}
	queueSize, err := getEnvInt("ACCESS_LOG_QUEUE_SIZE", 4096)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("ACCESS_LOG_WORKERS", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		XDSAddr:            getEnv("XDS_ADDR", ":9090"),
		ALSAddr:            getEnv("ALS_ADDR", ":9091"),
		ExtProcAddr:        getEnv("EXTPROC_ADDR", ":9092"),
		APIAddr:            getEnv("API_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "postgres://localhost:5432/controlplane?sslmode=disable"),
		BootstrapToken:     os.Getenv("BOOTSTRAP_TOKEN"),
		FilterSchemaDir:    getEnv("FILTER_SCHEMA_DIR", "./filter-schemas"),
		XDSDebounce:        time.Duration(debounceMS) * time.Millisecond,
		AccessLogQueueSize: queueSize,
		AccessLogWorkers:   workers,
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}
