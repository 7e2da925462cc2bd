package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adhocore/gronx"
	"github.com/titanous/json5"
)

// Provider kinds supported by the runtime.
const (
	ProviderOllama   = "ollama"
	ProviderLMStudio = "lmstudio"
)

// Default returns a Config with sensible defaults for a local setup.
func Default() *Config {
	return &Config{
		DataRoot: "./data",
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8000,
			CORSOrigins:  FlexibleStringSlice{"http://localhost:5173", "http://127.0.0.1:5173"},
			RateLimitRPM: 120,
		},
		Provider: ProviderConfig{
			Kind:         ProviderOllama,
			APIKey:       "sk-no-key",
			DefaultModel: "gpt-oss:20b",
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "http://127.0.0.1:11434",
			Model:     "all-minilm",
			Dimension: 384,
		},
		Limits: LimitsConfig{
			MaxUploadBytes:         10 << 20,
			MaxURLBytes:            2 << 20,
			URLTimeoutSeconds:      10,
			MaxRedirects:           3,
			MaxToolRounds:          4,
			MaxTotalToolCalls:      15,
			ToolCallTimeoutSeconds: 30,
			TurnTimeoutSeconds:     600,
			HistoryWindow:          20,
			RetrievalTopK:          5,
		},
		Cache: CacheConfig{
			GCSchedule: "0 * * * *",
			MaxAgeDays: 14,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "hackhero",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, cfg.Validate()
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envInt64 := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*dst = n
			}
		}
	}

	envStr("DATA_ROOT", &c.DataRoot)
	envStr("DB_PATH", &c.Database.Path)
	envStr("REPO_ROOT", &c.RepoRoot)
	envStr("RULES_FILE", &c.RulesFile)

	// Database secrets come from env only
	envStr("HACKHERO_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("HACKHERO_MIGRATIONS_DIR", &c.Database.MigrationsDir)

	// Provider endpoint
	envStr("LLM_PROVIDER", &c.Provider.Kind)
	envStr("PROVIDER_BASE_URL", &c.Provider.BaseURL)
	envStr("PROVIDER_API_KEY", &c.Provider.APIKey)
	envStr("DEFAULT_MODEL_ID", &c.Provider.DefaultModel)

	// Embedding endpoint
	envStr("EMBEDDING_BASE_URL", &c.Embedding.BaseURL)
	envStr("EMBEDDING_MODEL_ID", &c.Embedding.Model)
	envInt("EMBEDDING_DIM", &c.Embedding.Dimension)

	// Budgets
	envInt64("MAX_UPLOAD_BYTES", &c.Limits.MaxUploadBytes)
	envInt64("MAX_URL_BYTES", &c.Limits.MaxURLBytes)
	envInt("URL_TIMEOUT_SECONDS", &c.Limits.URLTimeoutSeconds)
	envInt("MAX_REDIRECTS", &c.Limits.MaxRedirects)
	envInt("MAX_TOOL_ROUNDS", &c.Limits.MaxToolRounds)
	envInt("MAX_TOTAL_TOOL_CALLS", &c.Limits.MaxTotalToolCalls)
	envInt("TOOL_CALL_TIMEOUT_SECONDS", &c.Limits.ToolCallTimeoutSeconds)
	envInt("TURN_TIMEOUT_SECONDS", &c.Limits.TurnTimeoutSeconds)

	// Server
	envStr("HACKHERO_HOST", &c.Server.Host)
	if v := os.Getenv("HACKHERO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = strings.Split(v, ",")
	}
	envInt("RATE_LIMIT_RPM", &c.Server.RateLimitRPM)

	// Cache GC
	envStr("CACHE_GC_SCHEDULE", &c.Cache.GCSchedule)
	envInt("CACHE_MAX_AGE_DAYS", &c.Cache.MaxAgeDays)

	// Telemetry
	envStr("HACKHERO_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("HACKHERO_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("HACKHERO_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("HACKHERO_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("HACKHERO_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}
}

// Validate checks the config for values the runtime cannot start with.
func (c *Config) Validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("data_root must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Provider.Kind {
	case ProviderOllama, ProviderLMStudio:
	default:
		return fmt.Errorf("provider.kind %q not supported (ollama, lmstudio)", c.Provider.Kind)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive")
	}
	if c.Limits.MaxUploadBytes <= 0 || c.Limits.MaxURLBytes <= 0 {
		return fmt.Errorf("ingest byte limits must be positive")
	}
	if c.Limits.MaxRedirects < 0 {
		return fmt.Errorf("limits.max_redirects must not be negative")
	}
	if c.Limits.MaxToolRounds < 1 || c.Limits.MaxTotalToolCalls < 1 {
		return fmt.Errorf("tool budgets must be at least 1")
	}
	if c.Limits.URLTimeoutSeconds <= 0 || c.Limits.ToolCallTimeoutSeconds <= 0 || c.Limits.TurnTimeoutSeconds <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.Cache.GCSchedule != "" && !gronx.New().IsValid(c.Cache.GCSchedule) {
		return fmt.Errorf("cache.gc_schedule %q is not a valid cron expression", c.Cache.GCSchedule)
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("telemetry.protocol %q not supported (grpc, http)", c.Telemetry.Protocol)
	}
	return nil
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
