package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Portfolio  PortfolioConfig  `mapstructure:"portfolio"`
	Cache      CacheConfig      `mapstructure:"cache"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"` // "debug" or "release"
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// MarketDataConfig controls where prices and fundamentals come from.
type MarketDataConfig struct {
	Provider     string        `mapstructure:"provider"`
	LookbackDays int           `mapstructure:"lookback_days"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Concurrency  int           `mapstructure:"concurrency"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// PortfolioConfig holds the suggestion parameters.
type PortfolioConfig struct {
	MinInvestment float64 `mapstructure:"min_investment"`
	MaxHoldings   int     `mapstructure:"max_holdings"`
	CombinePolicy string  `mapstructure:"combine_policy"` // "union" or "intersection"
	Scorer        string  `mapstructure:"scorer"`         // "sma" or "ema"
	Window        int     `mapstructure:"window"`
	MinPeriods    int     `mapstructure:"min_periods"`
	TrendDays     int     `mapstructure:"trend_days"`
}

// CacheConfig selects the market data cache backend.
type CacheConfig struct {
	Type          string        `mapstructure:"type"` // "memory", "localfs", "s3" or "none"
	TTL           time.Duration `mapstructure:"ttl"`
	Path          string        `mapstructure:"path"` // For localfs
	S3            S3Config      `mapstructure:"s3"`   // For S3
	PruneSchedule string        `mapstructure:"prune_schedule"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// Backend converts the section into the cache package's config.
func (c CacheConfig) Backend() cache.Config {
	return cache.Config{
		Type: c.Type,
		Path: c.Path,
		S3: cache.S3Config{
			Bucket:    c.S3.Bucket,
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Prefix:    c.S3.Prefix,
		},
	}
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
}

type ClaudeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"` // optional proxy or gateway
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"` // any OpenAI-compatible endpoint
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadDotEnv loads KEY=VALUE files into the process environment.
// Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from file. An empty path yields the defaults
// with environment overrides applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	v.SetDefault("market_data.provider", d.MarketData.Provider)
	v.SetDefault("market_data.lookback_days", d.MarketData.LookbackDays)
	v.SetDefault("market_data.timeout", d.MarketData.Timeout)
	v.SetDefault("market_data.concurrency", d.MarketData.Concurrency)
	v.SetDefault("market_data.retry_backoff", d.MarketData.RetryBackoff)

	v.SetDefault("portfolio.min_investment", d.Portfolio.MinInvestment)
	v.SetDefault("portfolio.max_holdings", d.Portfolio.MaxHoldings)
	v.SetDefault("portfolio.combine_policy", d.Portfolio.CombinePolicy)
	v.SetDefault("portfolio.scorer", d.Portfolio.Scorer)
	v.SetDefault("portfolio.window", d.Portfolio.Window)
	v.SetDefault("portfolio.min_periods", d.Portfolio.MinPeriods)
	v.SetDefault("portfolio.trend_days", d.Portfolio.TrendDays)

	v.SetDefault("cache.type", d.Cache.Type)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.prune_schedule", d.Cache.PruneSchedule)
	v.SetDefault("cache.s3.bucket", "")
	v.SetDefault("cache.s3.endpoint", "")
	v.SetDefault("cache.s3.region", "")
	v.SetDefault("cache.s3.access_key", "")
	v.SetDefault("cache.s3.secret_key", "")
	v.SetDefault("cache.s3.prefix", "")

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.claude.api_key", "")
	v.SetDefault("llm.claude.model", d.LLM.Claude.Model)
	v.SetDefault("llm.claude.base_url", "")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Mode:        "release",
			CORSOrigins: []string{"*"},
		},
		MarketData: MarketDataConfig{
			Provider:     "yahoo",
			LookbackDays: 45,
			Timeout:      10 * time.Second,
			Concurrency:  8,
			RetryBackoff: 500 * time.Millisecond,
		},
		Portfolio: PortfolioConfig{
			MinInvestment: 5000,
			MaxHoldings:   10,
			CombinePolicy: "union",
			Scorer:        "sma",
			Window:        20,
			MinPeriods:    5,
			TrendDays:     5,
		},
		Cache: CacheConfig{
			Type:          "memory",
			TTL:           6 * time.Hour,
			PruneSchedule: "@every 30m",
		},
		LLM: LLMConfig{
			Claude: ClaudeConfig{Model: "claude-sonnet-4-20250514"},
			OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Market data validation
	md := c.MarketData
	if md.Provider == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("market_data.provider required"))
	}
	if md.LookbackDays <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback_days must be positive, got %d", md.LookbackDays))
	}
	if md.Concurrency < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("concurrency must be at least 1, got %d", md.Concurrency))
	}
	if md.RetryBackoff < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("retry_backoff cannot be negative, got %s", md.RetryBackoff))
	}

	// Portfolio validation
	p := c.Portfolio
	if p.MinInvestment <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_investment must be positive, got %f", p.MinInvestment))
	}
	if p.MaxHoldings < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_holdings cannot be negative, got %d", p.MaxHoldings))
	}
	switch p.CombinePolicy {
	case "", "union", "intersection":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown combine_policy %q", p.CombinePolicy))
	}
	switch p.Scorer {
	case "", "sma", "ema":
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown scorer %q", p.Scorer))
	}
	if p.Window <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("window must be positive, got %d", p.Window))
	}
	if p.MinPeriods < 0 || p.MinPeriods > p.Window {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_periods must be between 0 and window (%d), got %d", p.Window, p.MinPeriods))
	}
	if p.TrendDays < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("trend_days cannot be negative, got %d", p.TrendDays))
	}
	// Roughly five trading days per seven calendar days.
	if md.LookbackDays*5/7 < p.Window {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback_days %d cannot cover a %d-day window", md.LookbackDays, p.Window))
	}

	// Cache validation
	switch c.Cache.Type {
	case "", "memory", "none":
	case "localfs":
		if c.Cache.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("cache.path required when type is localfs"))
		}
	case "s3":
		if c.Cache.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("cache.s3.bucket required when type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown cache type %q", c.Cache.Type))
	}
	if c.Cache.TTL < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cache.ttl cannot be negative, got %s", c.Cache.TTL))
	}

	// LLM validation - if provider set, check config exists
	switch c.LLM.Provider {
	case "":
	case "claude":
		if c.LLM.Claude.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("claude api_key required when provider is claude"))
		}
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("openai api_key required when provider is openai"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	return nil
}
