package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"GoModelRouter/pkg/adaptive"
	"GoModelRouter/pkg/candidate"
	"GoModelRouter/pkg/discovery"
	"GoModelRouter/pkg/generation"
	"GoModelRouter/pkg/orchestrator"
	"GoModelRouter/pkg/schedule"
	"GoModelRouter/pkg/store"
)

// EnvPrefix prefixes every environment override, e.g. ROUTER_STORE_DRIVER.
const EnvPrefix = "ROUTER"

// Config is the full router configuration, one section per component.
type Config struct {
	LogLevel     string              `mapstructure:"log_level"`
	Server       ServerConfig        `mapstructure:"server"`
	Store        store.Config        `mapstructure:"store"`
	Discovery    discovery.Config    `mapstructure:"discovery"`
	Generation   generation.Config   `mapstructure:"generation"`
	Selection    candidate.Settings  `mapstructure:"selection"`
	Orchestrator orchestrator.Config `mapstructure:"orchestrator"`
	Scheduler    schedule.Config     `mapstructure:"scheduler"`
	Adaptive     adaptive.Config     `mapstructure:"adaptive"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		LogLevel:     "info",
		Server:       ServerConfig{Host: "0.0.0.0", Port: 8080, MetricsPath: "/metrics"},
		Store:        store.Config{Driver: "file", RedisAddr: "localhost:6379", RedisKey: store.DefaultRedisKey},
		Discovery:    discovery.DefaultConfig(),
		Generation:   generation.DefaultConfig(),
		Selection:    candidate.DefaultSettings(),
		Orchestrator: orchestrator.DefaultConfig(),
		Scheduler:    schedule.DefaultConfig(),
		Adaptive:     adaptive.DefaultConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.metrics_path", d.Server.MetricsPath)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", "") // per-driver default
	v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_key", d.Store.RedisKey)
	v.SetDefault("store.redis_ttl", d.Store.RedisTTL)

	v.SetDefault("discovery.url", d.Discovery.URL)
	v.SetDefault("discovery.timeout", d.Discovery.Timeout)
	v.SetDefault("discovery.pipeline_tag", d.Discovery.PipelineTag)
	v.SetDefault("discovery.filter", d.Discovery.Filter)
	v.SetDefault("discovery.sort", d.Discovery.Sort)
	v.SetDefault("discovery.fetch_limit", d.Discovery.FetchLimit)
	v.SetDefault("discovery.max_results", d.Discovery.MaxResults)
	v.SetDefault("discovery.require_in_id", d.Discovery.RequireInID)
	v.SetDefault("discovery.providers", d.Discovery.Providers)
	v.SetDefault("discovery.min_refresh_interval", d.Discovery.MinRefreshInterval)

	v.SetDefault("generation.url", d.Generation.URL)
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.timeout", d.Generation.Timeout)
	v.SetDefault("generation.max_tokens", d.Generation.MaxTokens)
	v.SetDefault("generation.temperature", d.Generation.Temperature)
	v.SetDefault("generation.require_article", d.Generation.RequireArticle)

	v.SetDefault("selection.cache_duration", d.Selection.CacheDuration)
	v.SetDefault("selection.max_failures", d.Selection.MaxFailures)
	v.SetDefault("selection.score_decay", d.Selection.ScoreDecay)
	v.SetDefault("selection.success_delta", d.Selection.SuccessDelta)
	v.SetDefault("selection.failure_delta", d.Selection.FailureDelta)
	v.SetDefault("selection.neutral_score", d.Selection.NeutralScore)
	v.SetDefault("selection.max_recency_bonus", d.Selection.MaxRecencyBonus)
	v.SetDefault("selection.recency_slope", d.Selection.RecencySlope)
	v.SetDefault("selection.low_score_threshold", d.Selection.LowScoreThreshold)
	v.SetDefault("selection.epsilon", d.Selection.Epsilon)
	v.SetDefault("selection.fallback_ids", d.Selection.FallbackIDs)

	v.SetDefault("orchestrator.attempt_timeout", d.Orchestrator.AttemptTimeout)
	v.SetDefault("orchestrator.abort_on_auth", d.Orchestrator.AbortOnAuth)

	v.SetDefault("scheduler.enabled", d.Scheduler.Enabled)
	v.SetDefault("scheduler.hour", d.Scheduler.Hour)
	v.SetDefault("scheduler.minute", d.Scheduler.Minute)
	v.SetDefault("scheduler.retry_interval", d.Scheduler.RetryInterval)
	v.SetDefault("scheduler.max_retries", d.Scheduler.MaxRetries)
	v.SetDefault("scheduler.topic", d.Scheduler.Topic)

	v.SetDefault("adaptive.enabled", d.Adaptive.Enabled)
	v.SetDefault("adaptive.base_limit", d.Adaptive.BaseLimit)
	v.SetDefault("adaptive.burst", d.Adaptive.Burst)
	v.SetDefault("adaptive.interval", d.Adaptive.Interval)
	v.SetDefault("adaptive.min_factor", d.Adaptive.MinFactor)
	v.SetDefault("adaptive.min_samples", d.Adaptive.MinSamples)
	v.SetDefault("adaptive.target_error_rate", d.Adaptive.TargetErrorRate)
	v.SetDefault("adaptive.target_quota_rate", d.Adaptive.TargetQuotaRate)
	v.SetDefault("adaptive.target_latency_ms", d.Adaptive.TargetLatencyMs)
	v.SetDefault("adaptive.source", d.Adaptive.Source)
	v.SetDefault("adaptive.prometheus_url", d.Adaptive.PrometheusURL)
	v.SetDefault("adaptive.window", d.Adaptive.Window)
}

// Load reads configuration from path, or from config.yaml in ./config or
// the working directory when path is empty. A missing config.yaml is not an
// error; an explicitly named file must exist. Environment variables
// override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// The router token is commonly provided under its provider's name.
	if cfg.Generation.APIKey == "" {
		if key := os.Getenv("HF_API_KEY"); key != "" {
			cfg.Generation.APIKey = key
		} else if key := os.Getenv("HUGGINGFACE_API_KEY"); key != "" {
			cfg.Generation.APIKey = key
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" && os.Getenv(EnvPrefix+"_LOG_LEVEL") == "" {
		cfg.LogLevel = level
	}

	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
