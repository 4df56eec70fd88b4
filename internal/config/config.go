// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.zettel/config.yaml or ./config.yaml)
//  3. Default values
//
// Sensitive fields (the PostgreSQL password) are masked in MarshalJSON
// and String so the config can be logged safely.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the embedding provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgres indicates a PostgreSQL connection setting is invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")

	// ErrInvalidIntervals indicates the review interval table is malformed.
	ErrInvalidIntervals = errors.New("invalid review intervals")

	// ErrInvalidThreshold indicates a suggestion threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid suggestion threshold")

	// ErrInvalidServer indicates an HTTP server setting is invalid.
	ErrInvalidServer = errors.New("invalid server configuration")
)

// Embedding provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// DefaultGeminiEmbedderModel outputs 3072 dimensions by default but
// supports truncation to the 768 dimensions our pgvector schema uses.
const DefaultGeminiEmbedderModel = "gemini-embedding-001"

// Config stores application configuration. The PostgreSQL password is
// masked in MarshalJSON; update that method when adding new secrets.
type Config struct {
	// Embedding provider configuration
	Provider      string `mapstructure:"provider" json:"provider"` // "gemini" (default), "ollama", "openai"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	OllamaHost    string `mapstructure:"ollama_host" json:"ollama_host"` // only used when provider is "ollama"

	// PostgreSQL connection (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Spaced-repetition interval table, one entry per stage, in days.
	// Stage 1 at 0 days makes a fresh card immediately due.
	ReviewIntervalsDays []int `mapstructure:"review_intervals_days" json:"review_intervals_days"`

	// Link suggestion tuning
	SuggestThreshold     float64 `mapstructure:"suggest_threshold" json:"suggest_threshold"`
	SuggestMinConfidence float64 `mapstructure:"suggest_min_confidence" json:"suggest_min_confidence"`

	// HTTP server
	ServerAddr     string  `mapstructure:"server_addr" json:"server_addr"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".zettel")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults carry the day.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides the individual postgres_* keys.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	viper.SetDefault("ollama_host", "http://localhost:11434")

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "zettel")
	viper.SetDefault("postgres_password", "zettel_dev_password")
	viper.SetDefault("postgres_db_name", "zettel")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("review_intervals_days", []int{0, 7, 30})

	viper.SetDefault("suggest_threshold", 0.7)
	viper.SetDefault("suggest_min_confidence", 0.6)

	viper.SetDefault("server_addr", ":8080")
	viper.SetDefault("rate_limit_rps", 20.0)
	viper.SetDefault("rate_limit_burst", 40)

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment overrides explicitly. Provider API
// keys (GEMINI_API_KEY, OPENAI_API_KEY) are read directly by the genkit
// plugins, not through viper; Validate checks their presence.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "ZETTEL_PROVIDER")
	mustBind("embedder_model", "ZETTEL_EMBEDDER_MODEL")
	mustBind("ollama_host", "ZETTEL_OLLAMA_HOST")
	mustBind("server_addr", "ZETTEL_SERVER_ADDR")
	mustBind("log_level", "ZETTEL_LOG_LEVEL")
	mustBind("log_json", "ZETTEL_LOG_JSON")
}

// ReviewIntervals converts the day-count table to durations.
func (c *Config) ReviewIntervals() []time.Duration {
	intervals := make([]time.Duration, len(c.ReviewIntervalsDays))
	for i, days := range c.ReviewIntervalsDays {
		intervals[i] = time.Duration(days) * 24 * time.Hour
	}
	return intervals
}

// maskedValue uses full-width blocks so a masked secret can never be a
// substring of the original.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of 8 characters
// or fewer are fully masked; longer ones keep the first and last two
// characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields. Update when adding new secrets.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
