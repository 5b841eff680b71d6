// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Draft store backends selectable with DRAFT_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Catalog sources selectable with CATALOG_SOURCE.
const (
	CatalogEmbedded = "embedded"
	CatalogFile     = "file"
	CatalogRemote   = "remote"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// LogFormat is "json" (default) or "text" for coloured console output.
	LogFormat string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// DraftStore selects where drafts live: memory (default), postgres or redis.
	DraftStore string
	// DatabaseURL is the Postgres connection string. Required for postgres.
	DatabaseURL string
	// RedisURL is the Redis connection URL. Required for redis.
	RedisURL string
	// DraftTTL expires idle drafts in Redis. Zero keeps them forever.
	DraftTTL time.Duration

	// RemoteAPIURL is the base URL of the itinerary backend. Required.
	RemoteAPIURL string
	// RemoteAPIToken is sent as a bearer token when set.
	RemoteAPIToken string
	// RemoteRateLimit caps outgoing requests per second. Zero disables it.
	RemoteRateLimit float64
	// RemoteTimeout bounds each request to the remote backend. Defaults to 10s.
	RemoteTimeout time.Duration

	// CatalogSource is embedded (default), file or remote.
	CatalogSource string
	// CatalogPath is the YAML catalog file. Required for the file source.
	CatalogPath string
	// CatalogTTL is how long catalog reads are cached. Defaults to 10m.
	CatalogTTL time.Duration

	// SuggestionLimit caps suggestion lists. Defaults to 8.
	SuggestionLimit int
	// ReconcileConcurrency bounds parallel place registration. Defaults to 8.
	ReconcileConcurrency int
	// StrictReconcile aborts a save when any place fails to register.
	StrictReconcile bool
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or any
// that cannot be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "json")),
		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		DraftStore:     strings.ToLower(getEnv("DRAFT_STORE", StoreMemory)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RemoteAPIURL:   os.Getenv("REMOTE_API_URL"),
		RemoteAPIToken: os.Getenv("REMOTE_API_TOKEN"),
		CatalogSource:  strings.ToLower(getEnv("CATALOG_SOURCE", CatalogEmbedded)),
		CatalogPath:    os.Getenv("CATALOG_PATH"),
	}

	p := &parser{}
	cfg.MaxBodyBytes = p.intVar("MAX_BODY_BYTES", 1<<20)
	cfg.DraftTTL = p.durationVar("DRAFT_TTL", 0)
	cfg.RemoteRateLimit = p.floatVar("REMOTE_RATE_LIMIT", 10)
	cfg.RemoteTimeout = p.durationVar("REMOTE_TIMEOUT", 10*time.Second)
	cfg.CatalogTTL = p.durationVar("CATALOG_TTL", 10*time.Minute)
	cfg.SuggestionLimit = int(p.intVar("SUGGESTION_LIMIT", 8))
	cfg.ReconcileConcurrency = int(p.intVar("RECONCILE_CONCURRENCY", 8))
	cfg.StrictReconcile = p.boolVar("STRICT_RECONCILE", false)

	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		p.invalid = append(p.invalid, "LOG_FORMAT")
	}
	if !slices.Contains([]string{StoreMemory, StorePostgres, StoreRedis}, cfg.DraftStore) {
		p.invalid = append(p.invalid, "DRAFT_STORE")
	}
	if !slices.Contains([]string{CatalogEmbedded, CatalogFile, CatalogRemote}, cfg.CatalogSource) {
		p.invalid = append(p.invalid, "CATALOG_SOURCE")
	}

	var missing []string
	if cfg.RemoteAPIURL == "" {
		missing = append(missing, "REMOTE_API_URL")
	}
	if cfg.DraftStore == StorePostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.DraftStore == StoreRedis && cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if cfg.CatalogSource == CatalogFile && cfg.CatalogPath == "" {
		missing = append(missing, "CATALOG_PATH")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(p.invalid, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parser reads typed variables and collects the names of those that fail
// to parse, so Load can report them together.
type parser struct {
	invalid []string
}

func (p *parser) intVar(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}

func (p *parser) floatVar(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return f
}

func (p *parser) boolVar(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return b
}

func (p *parser) durationVar(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}
