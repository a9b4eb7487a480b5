package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Jobs        JobsConfig       `toml:"jobs"`
	SiteSearch  SiteSearchConfig `toml:"sitesearch"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	LLM         LLMConfig        `toml:"llm"`
	CRM         CRMConfig        `toml:"crm"`
	WebSocket   WebSocketConfig  `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// JobsConfig controls the background job manager and its retention cleanup.
type JobsConfig struct {
	DefaultResultCount int     `toml:"default_result_count"` // per-site candidate cap when the caller gives none
	PruneSchedule      string  `toml:"prune_schedule"`       // cron expression for retention cleanup
	RetentionDays      int     `toml:"retention_days"`       // terminal jobs older than this are pruned
	PollInterval       string  `toml:"poll_interval"`        // default webbusca status poll cadence, e.g. "2s"
	MaxWait            string  `toml:"max_wait"`             // default per-job wait in webbusca, e.g. "5m"
	DefaultRigor       int     `toml:"default_rigor"`        // 0-5 refinement strictness when the item has no override
	ApplyWebWeighting  bool    `toml:"apply_web_weighting"`  // run the weighting pre-pass on fan-out
	DefaultWebWeight   float64 `toml:"default_web_weight"`   // fallback weight when the weigher is unavailable
}

// SiteSearchConfig contains supplier-site scraping configuration.
type SiteSearchConfig struct {
	UserAgent       string        `toml:"user_agent"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	RequestsPerSec  float64       `toml:"requests_per_sec"` // per-domain rate limit
	Burst           int           `toml:"burst"`
	MaxBodySize     int           `toml:"max_body_size"`
	EnableRendering bool          `toml:"enable_rendering"` // allow chromedp for render_js suppliers
	RenderWaitTime  time.Duration `toml:"render_wait_time"` // time to let scripts settle before extraction
}

// GeminiConfig contains Gemini provider settings.
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic provider settings.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// LLMConfig selects models per capability and the default provider.
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider"` // "gemini" or "claude"
	RankModel       string `toml:"rank_model"`
	ClassifyModel   string `toml:"classify_model"`
	WeighModel      string `toml:"weigh_model"`
	Timeout         string `toml:"timeout"`
}

// CRMConfig contains the Dynamics 365 outbound client settings.
type CRMConfig struct {
	Enabled      bool   `toml:"enabled"`
	TenantID     string `toml:"tenant_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Resource     string `toml:"resource"` // e.g. "https://org.crm.dynamics.com"
}

// WebSocketConfig contains configuration for job event streaming.
type WebSocketConfig struct {
	// Whitelist of event types to broadcast. Empty list allows all events.
	AllowedEvents []string `toml:"allowed_events"`
}

// DefaultConfig returns the configuration defaults applied before any file or
// environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/cotiza",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Jobs: JobsConfig{
			DefaultResultCount: 5,
			PruneSchedule:      "0 3 * * *",
			RetentionDays:      7,
			PollInterval:       "2s",
			MaxWait:            "5m",
			DefaultRigor:       3,
			ApplyWebWeighting:  true,
			DefaultWebWeight:   0.5,
		},
		SiteSearch: SiteSearchConfig{
			UserAgent:       "cotiza/1.0",
			RequestTimeout:  30 * time.Second,
			RequestsPerSec:  1,
			Burst:           2,
			MaxBodySize:     10 * 1024 * 1024,
			EnableRendering: true,
			RenderWaitTime:  3 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Timeout:         "60s",
		},
	}
}

// LoadConfig loads configuration from defaults, an optional TOML file and
// COTIZA_* environment overrides, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies COTIZA_* environment variables on top of the
// loaded configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COTIZA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("COTIZA_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("COTIZA_STORAGE_PATH"); v != "" {
		cfg.Storage.Badger.Path = v
	}
	if v := os.Getenv("COTIZA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COTIZA_GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("COTIZA_ANTHROPIC_API_KEY"); v != "" {
		cfg.Claude.APIKey = v
	}
	if v := os.Getenv("COTIZA_CRM_CLIENT_SECRET"); v != "" {
		cfg.CRM.ClientSecret = v
	}
}

// Validate checks cross-field constraints that TOML parsing cannot express.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.Badger.Path == "" {
		return fmt.Errorf("storage.badger.path is required")
	}
	if c.LLM.DefaultProvider != "gemini" && c.LLM.DefaultProvider != "claude" {
		return fmt.Errorf("invalid llm.default_provider %q: must be 'gemini' or 'claude'", c.LLM.DefaultProvider)
	}
	if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
	}
	if c.Jobs.RetentionDays <= 0 {
		return fmt.Errorf("jobs.retention_days must be positive, got %d", c.Jobs.RetentionDays)
	}
	if _, err := time.ParseDuration(c.Jobs.PollInterval); err != nil {
		return fmt.Errorf("invalid jobs.poll_interval %q: %w", c.Jobs.PollInterval, err)
	}
	if _, err := time.ParseDuration(c.Jobs.MaxWait); err != nil {
		return fmt.Errorf("invalid jobs.max_wait %q: %w", c.Jobs.MaxWait, err)
	}
	if c.Jobs.DefaultRigor < 0 || c.Jobs.DefaultRigor > 5 {
		return fmt.Errorf("jobs.default_rigor must be 0-5, got %d", c.Jobs.DefaultRigor)
	}
	if c.CRM.Enabled {
		if c.CRM.TenantID == "" || c.CRM.ClientID == "" || c.CRM.Resource == "" {
			return fmt.Errorf("crm.tenant_id, crm.client_id and crm.resource are required when crm.enabled=true")
		}
	}
	return nil
}

// PollIntervalDuration returns the parsed webbusca poll cadence.
func (c *JobsConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// MaxWaitDuration returns the parsed per-job wait limit.
func (c *JobsConfig) MaxWaitDuration() time.Duration {
	d, err := time.ParseDuration(c.MaxWait)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}
