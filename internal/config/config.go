package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the HackHero runtime.
type Config struct {
	DataRoot  string          `json:"data_root"`
	RepoRoot  string          `json:"repo_root,omitempty"`
	RulesFile string          `json:"rules_file,omitempty"`
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	Provider  ProviderConfig  `json:"provider"`
	Embedding EmbeddingConfig `json:"embedding"`
	Limits    LimitsConfig    `json:"limits"`
	Cache     CacheConfig     `json:"cache,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string              `json:"host"`
	Port         int                 `json:"port"`
	CORSOrigins  FlexibleStringSlice `json:"cors_origins,omitempty"`
	RateLimitRPM int                 `json:"rate_limit_rpm,omitempty"` // mutating endpoints, 0 = unlimited
}

// DatabaseConfig selects the store backend.
// PostgresDSN is never read from the config file, only from env
// HACKHERO_POSTGRES_DSN. When empty, the SQLite backend is used.
type DatabaseConfig struct {
	Path          string `json:"path,omitempty"` // SQLite file (default: <data_root>/app.db)
	PostgresDSN   string `json:"-"`              // from env HACKHERO_POSTGRES_DSN only
	MigrationsDir string `json:"migrations_dir,omitempty"`
}

// ProviderConfig configures the OpenAI-compatible LLM endpoint.
type ProviderConfig struct {
	Kind         string `json:"kind"`     // "ollama" or "lmstudio"
	BaseURL      string `json:"base_url"` // empty = kind default
	APIKey       string `json:"-"`        // from env PROVIDER_API_KEY only
	DefaultModel string `json:"default_model"`
}

// EmbeddingConfig configures the embedding endpoint used by the retrieval index.
type EmbeddingConfig struct {
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// LimitsConfig holds ingestion and orchestration budgets.
type LimitsConfig struct {
	MaxUploadBytes         int64 `json:"max_upload_bytes"`          // file ingest cap (default 10 MiB)
	MaxURLBytes            int64 `json:"max_url_bytes"`             // URL fetch cap (default 2 MiB)
	URLTimeoutSeconds      int   `json:"url_timeout_seconds"`       // per fetch phase
	MaxRedirects           int   `json:"max_redirects"`             // URL fetch hop limit
	MaxToolRounds          int   `json:"max_tool_rounds"`           // provider rounds per turn
	MaxTotalToolCalls      int   `json:"max_total_tool_calls"`      // executions per turn
	ToolCallTimeoutSeconds int   `json:"tool_call_timeout_seconds"` // per tool execution
	TurnTimeoutSeconds     int   `json:"turn_timeout_seconds"`      // whole chat turn
	HistoryWindow          int   `json:"history_window"`            // prior messages included in the prompt
	RetrievalTopK          int   `json:"retrieval_top_k"`           // chunks injected per turn
}

// CacheConfig configures the embedding cache GC loop.
type CacheConfig struct {
	GCSchedule string `json:"gc_schedule,omitempty"`  // cron expression (default "0 * * * *")
	MaxAgeDays int    `json:"max_age_days,omitempty"` // entries older than this are removed (default 14)
}

// TelemetryConfig configures OpenTelemetry export for traces and spans.
// When enabled, spans are exported to an OTLP-compatible backend (Jaeger,
// Tempo, Datadog, etc.).
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`      // enable OTLP export (default false)
	Endpoint    string            `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317", "https://otel.example.com:4318")
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // skip TLS verification (default false, set true for local dev)
	ServiceName string            `json:"service_name,omitempty"` // OTEL service name (default "hackhero")
	Headers     map[string]string `json:"headers,omitempty"`      // extra headers (e.g. auth tokens for cloud backends)
}

// UsePostgres reports whether the Postgres backend should be used.
func (c *Config) UsePostgres() bool {
	return c.Database.PostgresDSN != ""
}

// DatabasePath returns the SQLite file path, defaulting under the data root.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return ExpandHome(c.Database.Path)
	}
	return filepath.Join(c.DataRootPath(), "app.db")
}

// DataRootPath returns the expanded data root directory.
func (c *Config) DataRootPath() string {
	return ExpandHome(c.DataRoot)
}

// CacheDir returns the embedding cache directory under the data root.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataRootPath(), "rag_cache")
}

// RulesFilePath returns the seed rules file path, defaulting under the data root.
func (c *Config) RulesFilePath() string {
	if c.RulesFile != "" {
		return ExpandHome(c.RulesFile)
	}
	return filepath.Join(c.DataRootPath(), "rules.txt")
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
