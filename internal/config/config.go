package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Yelp       YelpConfig       `yaml:"yelp" mapstructure:"yelp"`
	Census     CensusConfig     `yaml:"census" mapstructure:"census"`
	Trends     TrendsConfig     `yaml:"trends" mapstructure:"trends"`
	Summarizer SummarizerConfig `yaml:"summarizer" mapstructure:"summarizer"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Notify     NotifyConfig     `yaml:"notify" mapstructure:"notify"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GoogleConfig configures the Places source.
type GoogleConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Language string `yaml:"language" mapstructure:"language"`
}

// YelpConfig configures the review source.
type YelpConfig struct {
	Key                string  `yaml:"key" mapstructure:"key"`
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec         float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	ReviewsPerBusiness int     `yaml:"reviews_per_business" mapstructure:"reviews_per_business"`
}

// CensusGeo is an ACS geography clause.
type CensusGeo struct {
	For string `yaml:"for" mapstructure:"for"`
	In  string `yaml:"in" mapstructure:"in"`
}

// CensusConfig configures the demographics source. Districts maps a
// lower-cased district name to its geography; unknown districts use Default.
type CensusConfig struct {
	Key       string               `yaml:"key" mapstructure:"key"`
	BaseURL   string               `yaml:"base_url" mapstructure:"base_url"`
	Dataset   string               `yaml:"dataset" mapstructure:"dataset"`
	Default   CensusGeo            `yaml:"default" mapstructure:"default"`
	Districts map[string]CensusGeo `yaml:"districts" mapstructure:"districts"`
}

// TrendsConfig configures the search-interest source.
type TrendsConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	Geo        string  `yaml:"geo" mapstructure:"geo"`
	Timeframe  string  `yaml:"timeframe" mapstructure:"timeframe"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// SummarizerConfig selects the analysis provider.
type SummarizerConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the summarizer deadline.
func (s SummarizerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// PerplexityConfig configures the Perplexity summarizer.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig configures the Anthropic summarizer.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// RedisConfig configures the shared notification throttle. An empty Addr
// keeps the throttle in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

// NotifyConfig configures notification throttling.
type NotifyConfig struct {
	CooldownMs int `yaml:"cooldown_ms" mapstructure:"cooldown_ms"`
	FeedSize   int `yaml:"feed_size" mapstructure:"feed_size"`
}

// Cooldown returns the suppression window.
func (n NotifyConfig) Cooldown() time.Duration {
	return time.Duration(n.CooldownMs) * time.Millisecond
}

// ResilienceConfig configures retry and circuit breaking for every source.
type ResilienceConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Summarizer providers.
const (
	ProviderPerplexity = "perplexity"
	ProviderAnthropic  = "anthropic"
)

// Load reads configuration from .env, config.yaml and the environment, in
// increasing priority.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BIZLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys default to empty so environment overrides bind.
	v.SetDefault("google.key", "")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.language", "it")
	v.SetDefault("yelp.key", "")
	v.SetDefault("yelp.base_url", "https://api.yelp.com/v3")
	v.SetDefault("yelp.rate_per_sec", 5.0)
	v.SetDefault("yelp.reviews_per_business", 3)
	v.SetDefault("census.key", "")
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.dataset", "2022/acs/acs5")
	v.SetDefault("census.default.for", "county:086")
	v.SetDefault("census.default.in", "state:12")
	v.SetDefault("trends.key", "")
	v.SetDefault("trends.base_url", "https://serpapi.com")
	v.SetDefault("trends.geo", "US-FL")
	v.SetDefault("trends.timeframe", "today 12-m")
	v.SetDefault("trends.rate_per_sec", 1.0)
	v.SetDefault("summarizer.provider", ProviderPerplexity)
	v.SetDefault("summarizer.timeout_secs", 30)
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "bizlens:notify:")
	v.SetDefault("notify.cooldown_ms", 5000)
	v.SetDefault("notify.feed_size", 50)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 300)
	v.SetDefault("resilience.max_backoff_ms", 5000)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks value ranges. Missing API keys are allowed; the affected
// source falls back to synthetic data.
func (c *Config) Validate() error {
	switch c.Summarizer.Provider {
	case ProviderPerplexity, ProviderAnthropic:
	default:
		return eris.Errorf("config: unknown summarizer provider %q", c.Summarizer.Provider)
	}
	if c.Summarizer.TimeoutSecs <= 0 {
		return eris.New("config: summarizer.timeout_secs must be positive")
	}
	if c.Notify.CooldownMs <= 0 {
		return eris.New("config: notify.cooldown_ms must be positive")
	}
	if c.Notify.FeedSize <= 0 {
		return eris.New("config: notify.feed_size must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Resilience.MaxAttempts <= 0 {
		return eris.New("config: resilience.max_attempts must be positive")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return eris.Wrap(err, "config: log.level")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
