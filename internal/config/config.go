package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/localrivet/configurator"

	"github.com/localrivet/tinysummary/internal/errortypes"
	"github.com/localrivet/tinysummary/internal/logger"
)

// EnvPrefix prefixes every environment override, e.g. TINYSUMMARY_SERVER_ADDR.
const EnvPrefix = "TINYSUMMARY"

// Config represents the tinysummary configuration
type Config struct {
	// Server contains HTTP transport configuration.
	Server struct {
		Addr                   string `json:"addr" yaml:"addr" env:"SERVER_ADDR" validate:"required"`
		ReadTimeoutSeconds     int    `json:"read_timeout_seconds" yaml:"read_timeout_seconds" env:"SERVER_READ_TIMEOUT_SECONDS" validate:"min:1"`
		WriteTimeoutSeconds    int    `json:"write_timeout_seconds" yaml:"write_timeout_seconds" env:"SERVER_WRITE_TIMEOUT_SECONDS" validate:"min:1"`
		ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" env:"SERVER_SHUTDOWN_TIMEOUT_SECONDS" validate:"min:1"`
	} `json:"server" yaml:"server"`

	// Summarizer contains summarization-related configuration.
	Summarizer struct {
		// Provider is the primary LLM provider: anthropic, openai, google,
		// xai, or extractive to never call out. Empty picks the first
		// provider that has an API key.
		Provider string `json:"provider" yaml:"provider" env:"SUMMARIZER_PROVIDER"`

		// ModelID, ApiKey and BaseURL apply to the primary provider and are
		// rejected without one. Other providers use their defaults and their
		// conventional key variables.
		ModelID string `json:"model_id" yaml:"model_id" env:"SUMMARIZER_MODEL_ID"`
		ApiKey  string `json:"api_key" yaml:"api_key" env:"SUMMARIZER_API_KEY"`
		BaseURL string `json:"base_url" yaml:"base_url" env:"SUMMARIZER_BASE_URL"`

		// FallbackOrder is a comma-separated provider list tried after the primary.
		FallbackOrder string `json:"fallback_order" yaml:"fallback_order" env:"SUMMARIZER_FALLBACK_ORDER"`

		MaxSentences   int     `json:"max_sentences" yaml:"max_sentences" env:"SUMMARIZER_MAX_SENTENCES" validate:"min:1"`
		MaxTokens      int     `json:"max_tokens" yaml:"max_tokens" env:"SUMMARIZER_MAX_TOKENS" validate:"min:1"`
		Temperature    float64 `json:"temperature" yaml:"temperature" env:"SUMMARIZER_TEMPERATURE"`
		TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds" env:"SUMMARIZER_TIMEOUT_SECONDS" validate:"min:1"`
		MaxRetries     int     `json:"max_retries" yaml:"max_retries" env:"SUMMARIZER_MAX_RETRIES"`
		RetryDelayMs   int     `json:"retry_delay_ms" yaml:"retry_delay_ms" env:"SUMMARIZER_RETRY_DELAY_MS"`
	} `json:"summarizer" yaml:"summarizer"`

	// Cache contains summary cache configuration.
	Cache struct {
		// Backend is memory, sqlite, redis or none.
		Backend       string `json:"backend" yaml:"backend" env:"CACHE_BACKEND" validate:"required"`
		Capacity      int    `json:"capacity" yaml:"capacity" env:"CACHE_CAPACITY"`
		TTLSeconds    int    `json:"ttl_seconds" yaml:"ttl_seconds" env:"CACHE_TTL_SECONDS"`
		SQLitePath    string `json:"sqlite_path" yaml:"sqlite_path" env:"CACHE_SQLITE_PATH"`
		RedisAddrs    string `json:"redis_addrs" yaml:"redis_addrs" env:"CACHE_REDIS_ADDRS"`
		RedisPassword string `json:"redis_password" yaml:"redis_password" env:"CACHE_REDIS_PASSWORD"`
		RedisPrefix   string `json:"redis_prefix" yaml:"redis_prefix" env:"CACHE_REDIS_PREFIX"`
	} `json:"cache" yaml:"cache"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" yaml:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" yaml:"format" env:"LOG_FORMAT"`
	} `json:"logging" yaml:"logging"`

	// Internal state (not saved to config file)
	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename = ".tinysummaryconfig"
	DefaultAddr           = ":8080"
	DefaultSQLitePath     = ".tinysummary.db"
	DefaultCacheBackend   = "memory"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	config := &Config{}
	config.Server.Addr = DefaultAddr
	config.Server.ReadTimeoutSeconds = 15
	config.Server.WriteTimeoutSeconds = 60
	config.Server.ShutdownTimeoutSeconds = 10
	config.Summarizer.FallbackOrder = "openai,anthropic,google,xai"
	config.Summarizer.MaxSentences = 5
	config.Summarizer.MaxTokens = 400
	config.Summarizer.Temperature = 0.3
	config.Summarizer.TimeoutSeconds = 30
	config.Summarizer.MaxRetries = 2
	config.Summarizer.RetryDelayMs = 1000
	config.Cache.Backend = DefaultCacheBackend
	config.Cache.Capacity = 1000
	config.Cache.TTLSeconds = 24 * 60 * 60
	config.Cache.SQLitePath = DefaultSQLitePath
	config.Cache.RedisPrefix = "tinysummary:"
	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat
	return config
}

// LoadConfigWithPath loads the configuration from a specific path. A missing
// file leaves the defaults in place; environment overrides apply either way.
func LoadConfigWithPath(configPath string) (*Config, error) {
	return load(context.Background(), configPath, slog.Default())
}

func load(ctx context.Context, configPath string, log *slog.Logger) (*Config, error) {
	cfg := NewConfig()

	// Try to find config file if path is default
	if configPath == DefaultConfigFilename {
		if foundPath, err := configurator.FindConfigFile(configPath); err == nil {
			configPath = foundPath
			log.Debug("Found config file", "path", foundPath)
		}
	}

	loader := configurator.New(log).
		WithProvider(configurator.NewDefaultProvider())

	if _, err := os.Stat(configPath); err == nil {
		log.Info("Loading configuration", "path", configPath)
		loader = loader.WithProvider(configurator.NewFileProvider(configPath))
	} else {
		log.Debug("Config file not found, using defaults", "path", configPath)
	}

	loader = loader.
		WithProvider(configurator.NewEnvProvider(EnvPrefix)).
		WithValidator(configurator.NewDefaultValidator())

	if err := loader.Load(ctx, cfg); err != nil {
		return nil, errortypes.ConfigError(err, "failed to load configuration").WithField("path", configPath)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store the config path for future operations
	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()

	return cfg, nil
}

// Validate checks values the struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Summarizer.Provider {
	case "", "extractive", "anthropic", "openai", "google", "xai":
	default:
		return errortypes.ConfigError(fmt.Errorf("unknown provider %q", c.Summarizer.Provider), "invalid summarizer.provider")
	}
	// The key, model and base URL belong to the primary provider, so they
	// would be dropped silently without one.
	if c.Summarizer.Provider == "" || c.Summarizer.Provider == "extractive" {
		for field, value := range map[string]string{
			"api_key":  c.Summarizer.ApiKey,
			"model_id": c.Summarizer.ModelID,
			"base_url": c.Summarizer.BaseURL,
		} {
			if value != "" {
				return errortypes.ConfigError(fmt.Errorf("%s is set without a remote provider", field),
					"summarizer."+field+" requires summarizer.provider")
			}
		}
	}
	if c.Summarizer.Temperature < 0 || c.Summarizer.Temperature > 2 {
		return errortypes.ConfigError(fmt.Errorf("temperature %v out of range", c.Summarizer.Temperature), "summarizer.temperature must be between 0 and 2")
	}
	if c.Summarizer.MaxRetries < 0 {
		return errortypes.ConfigError(fmt.Errorf("max_retries %d", c.Summarizer.MaxRetries), "summarizer.max_retries must not be negative")
	}
	if c.Summarizer.RetryDelayMs < 0 {
		return errortypes.ConfigError(fmt.Errorf("retry_delay_ms %d", c.Summarizer.RetryDelayMs), "summarizer.retry_delay_ms must not be negative")
	}

	switch c.Cache.Backend {
	case "memory", "sqlite", "redis", "none":
	default:
		return errortypes.ConfigError(fmt.Errorf("unknown backend %q", c.Cache.Backend), "invalid cache.backend")
	}
	if c.Cache.Backend == "sqlite" && c.Cache.SQLitePath == "" {
		return errortypes.ConfigError(fmt.Errorf("sqlite_path is empty"), "sqlite cache requires cache.sqlite_path")
	}
	if c.Cache.Backend == "redis" && len(c.RedisAddrList()) == 0 {
		return errortypes.ConfigError(fmt.Errorf("redis_addrs is empty"), "redis cache requires cache.redis_addrs")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", logger.FormatText, logger.FormatJSON:
	default:
		return errortypes.ConfigError(fmt.Errorf("unknown format %q", c.Logging.Format), "invalid logging.format")
	}
	return nil
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Create directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Save using configurator's SaveToFile function
	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	// Update internal state
	c.configPath = path
	c.lastModifiedAt = time.Now()

	return nil
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// FallbackProviders splits Summarizer.FallbackOrder.
func (c *Config) FallbackProviders() []string {
	return splitList(c.Summarizer.FallbackOrder)
}

// RedisAddrList splits Cache.RedisAddrs.
func (c *Config) RedisAddrList() []string {
	return splitList(c.Cache.RedisAddrs)
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := &Config{
		Server:     c.Server,
		Summarizer: c.Summarizer,
		Cache:      c.Cache,
		Logging:    c.Logging,
	}
	out.Summarizer.ApiKey = mask(out.Summarizer.ApiKey)
	out.Cache.RedisPassword = mask(out.Cache.RedisPassword)
	return out
}

// Durations derived from the second/millisecond fields.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) SummarizerTimeout() time.Duration {
	return time.Duration(c.Summarizer.TimeoutSeconds) * time.Second
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Summarizer.RetryDelayMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// NewLogger creates the service logger described by the logging section
func NewLogger(cfg *Config) *slog.Logger {
	opts := logger.DefaultOptions()
	opts.Level = cfg.Logging.Level
	opts.Format = cfg.Logging.Format
	return logger.New(opts)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}
