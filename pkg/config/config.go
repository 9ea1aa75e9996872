package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the contest crawler
type Config struct {
	// Target catalog settings
	Site SiteConfig `yaml:"site" json:"site"`

	// Retry policy bounds per call site
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Page worker pool settings
	Pool PoolConfig `yaml:"pool" json:"pool"`

	// Request rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig holds target-site settings. The cookie header is supplied
// externally and treated as opaque.
type SiteConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	CookieHeader   string        `yaml:"cookie_header" json:"cookie_header"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// PolicyConfig holds the bounds of one retry policy. The per-call-site values
// are tunable policy, not load-tested optima.
type PolicyConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	MaxJitter   time.Duration `yaml:"max_jitter" json:"max_jitter"`
}

// RetryConfig holds one policy per call site plus the whole-unit retry bounds
type RetryConfig struct {
	PageFetch     PolicyConfig `yaml:"page_fetch" json:"page_fetch"`
	ProfileFetch  PolicyConfig `yaml:"profile_fetch" json:"profile_fetch"`
	AssetResolve  PolicyConfig `yaml:"asset_resolve" json:"asset_resolve"`
	AssetDownload PolicyConfig `yaml:"asset_download" json:"asset_download"`
	Unit          PolicyConfig `yaml:"unit" json:"unit"`
	// ResetCooldownMax bounds the extra random cooldown added after a
	// peer-initiated connection reset.
	ResetCooldownMax time.Duration `yaml:"reset_cooldown_max" json:"reset_cooldown_max"`
}

// PoolConfig holds page pool and record pacing settings
type PoolConfig struct {
	PageWorkers    int           `yaml:"page_workers" json:"page_workers"`
	RecordPauseMin time.Duration `yaml:"record_pause_min" json:"record_pause_min"`
	RecordPauseMax time.Duration `yaml:"record_pause_max" json:"record_pause_max"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// OutputConfig holds output directory and dataset configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	CheckpointEvery   int    `yaml:"checkpoint_every" json:"checkpoint_every"`
	DropAssetlessRows bool   `yaml:"drop_assetless_rows" json:"drop_assetless_rows"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:        "https://99designs.hk",
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36",
			RequestTimeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			PageFetch:        PolicyConfig{MaxAttempts: 8, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second, MaxJitter: time.Second},
			ProfileFetch:     PolicyConfig{MaxAttempts: 8, BaseDelay: 1500 * time.Millisecond, MaxDelay: 30 * time.Second, MaxJitter: time.Second},
			AssetResolve:     PolicyConfig{MaxAttempts: 15, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second, MaxJitter: time.Second},
			AssetDownload:    PolicyConfig{MaxAttempts: 8, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second, MaxJitter: 2 * time.Second},
			Unit:             PolicyConfig{MaxAttempts: 20, BaseDelay: 5 * time.Second, MaxDelay: 2 * time.Minute, MaxJitter: 3 * time.Second},
			ResetCooldownMax: 8 * time.Second,
		},
		Pool: PoolConfig{
			PageWorkers:    3,
			RecordPauseMin: 800 * time.Millisecond,
			RecordPauseMax: 2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Output: OutputConfig{
			BaseDirectory:   "./contests",
			CheckpointEvery: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration overrides from environment variables
func (c *Config) LoadFromEnv() error {
	if cookie := os.Getenv("CONTESTCRAWL_COOKIE_HEADER"); cookie != "" {
		c.Site.CookieHeader = cookie
	}
	if userAgent := os.Getenv("CONTESTCRAWL_USER_AGENT"); userAgent != "" {
		c.Site.UserAgent = userAgent
	}
	if baseURL := os.Getenv("CONTESTCRAWL_BASE_URL"); baseURL != "" {
		c.Site.BaseURL = baseURL
	}
	if outputDir := os.Getenv("CONTESTCRAWL_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if workers := os.Getenv("CONTESTCRAWL_PAGE_WORKERS"); workers != "" {
		var val int
		fmt.Sscanf(workers, "%d", &val)
		if val > 0 {
			c.Pool.PageWorkers = val
		}
	}
	if rpm := os.Getenv("CONTESTCRAWL_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if logLevel := os.Getenv("CONTESTCRAWL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".contestcrawl.yaml",
		".contestcrawl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "contestcrawl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "contestcrawl", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".contestcrawl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("site base URL is required"))
	}
	if c.Site.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	for name, p := range map[string]PolicyConfig{
		"page_fetch":     c.Retry.PageFetch,
		"profile_fetch":  c.Retry.ProfileFetch,
		"asset_resolve":  c.Retry.AssetResolve,
		"asset_download": c.Retry.AssetDownload,
		"unit":           c.Retry.Unit,
	} {
		if p.MaxAttempts <= 0 {
			errs = append(errs, fmt.Errorf("retry %s: max attempts must be positive", name))
		}
		if p.BaseDelay < 0 || p.MaxDelay < p.BaseDelay {
			errs = append(errs, fmt.Errorf("retry %s: delay bounds invalid", name))
		}
	}

	if c.Pool.PageWorkers <= 0 {
		errs = append(errs, errors.New("page workers must be positive"))
	}
	if c.Pool.PageWorkers > 25 {
		errs = append(errs, errors.New("page workers should not exceed 25"))
	}
	if c.Pool.RecordPauseMax < c.Pool.RecordPauseMin {
		errs = append(errs, errors.New("record pause bounds invalid"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.CheckpointEvery <= 0 {
		errs = append(errs, errors.New("checkpoint interval must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if workers, ok := flags["page-workers"].(int); ok && workers > 0 {
		c.Pool.PageWorkers = workers
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if cookie, ok := flags["cookie-header"].(string); ok && cookie != "" {
		c.Site.CookieHeader = cookie
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if attempts, ok := flags["unit-attempts"].(int); ok && attempts > 0 {
		c.Retry.Unit.MaxAttempts = attempts
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".contestcrawl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
