package adaptive

import (
	"context"
	"time"

	"go.uber.org/zap"

	"GoModelRouter/pkg/health"
	"GoModelRouter/pkg/logger"
)

// Config holds the throttle targets and the monitor cadence.
type Config struct {
	Enabled         bool          `mapstructure:"enabled"`
	BaseLimit       float64       `mapstructure:"base_limit"`
	Burst           int           `mapstructure:"burst"`
	Interval        time.Duration `mapstructure:"interval"`
	MinFactor       float64       `mapstructure:"min_factor"`
	MinSamples      float64       `mapstructure:"min_samples"`
	TargetErrorRate float64       `mapstructure:"target_error_rate"`
	TargetQuotaRate float64       `mapstructure:"target_quota_rate"`
	TargetLatencyMs float64       `mapstructure:"target_latency_ms"`
	Source          string        `mapstructure:"source"`
	PrometheusURL   string        `mapstructure:"prometheus_url"`
	Window          time.Duration `mapstructure:"window"`
}

// DefaultConfig returns conservative targets: 2 calls per second at full
// health, never below a tenth of that.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		BaseLimit:       2,
		Burst:           2,
		Interval:        15 * time.Second,
		MinFactor:       0.1,
		MinSamples:      5,
		TargetErrorRate: 0.25,
		TargetQuotaRate: 0.05,
		TargetLatencyMs: 20000,
		Source:          "window",
		Window:          5 * time.Minute,
	}
}

// Monitor manages the background routine that adjusts the limiter.
type Monitor struct {
	Limiter *Limiter
	Source  health.Source
	cfg     Config
	log     *zap.Logger
}

// NewMonitor creates a new instance of the adaptive monitor.
func NewMonitor(limiter *Limiter, source health.Source, cfg Config, log *zap.Logger) *Monitor {
	d := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = d.Interval
	}
	if cfg.MinFactor <= 0 || cfg.MinFactor > 1 {
		cfg.MinFactor = d.MinFactor
	}
	return &Monitor{
		Limiter: limiter,
		Source:  source,
		cfg:     cfg,
		log:     logger.OrNop(log).Named("adaptive"),
	}
}

// Run checks health every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	m.log.Info("adaptive throttle monitor started", zap.Duration("interval", m.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check fetches health once and applies the resulting factor. A fetch error
// keeps the current rate.
func (m *Monitor) Check(ctx context.Context) float64 {
	data, err := m.Source.FetchMetrics(ctx)
	if err != nil {
		m.log.Warn("error fetching health metrics, keeping current rate", zap.Error(err))
		return m.Limiter.Factor()
	}

	factor := CalculateFactor(data, m.cfg)
	if prev := m.Limiter.Factor(); factor != prev {
		m.log.Info("adjusting generation throttle",
			zap.Float64("from", prev),
			zap.Float64("to", factor),
			zap.Float64("error_rate", data.ErrorRate),
			zap.Float64("quota_rate", data.QuotaRate),
			zap.Float64("p95_ms", data.P95LatencyMs))
	}
	m.Limiter.UpdateFactor(factor)
	return factor
}

// CalculateFactor determines the throttling factor from health. Each metric
// yields target/current; the most stressed one wins. Too few samples means
// no throttling.
func CalculateFactor(data health.Data, cfg Config) float64 {
	if data.Samples < cfg.MinSamples {
		return 1
	}
	factor := min(
		ratio(cfg.TargetErrorRate, data.ErrorRate),
		ratio(cfg.TargetQuotaRate, data.QuotaRate),
		ratio(cfg.TargetLatencyMs, data.P95LatencyMs),
	)
	return max(cfg.MinFactor, min(1, factor))
}

func ratio(target, current float64) float64 {
	if target <= 0 || current <= 0 {
		return 1
	}
	return target / current
}
