package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"GoModelRouter/pkg/generation"
	"GoModelRouter/pkg/logger"
	"GoModelRouter/pkg/metrics"
	"GoModelRouter/pkg/orchestrator"
)

// Generator runs one generation request. *orchestrator.Orchestrator
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (generation.Result, error)
}

// Config controls the daily run and its retry loop.
type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	Hour          int           `mapstructure:"hour"`   // UTC
	Minute        int           `mapstructure:"minute"` // UTC
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MaxRetries    int           `mapstructure:"max_retries"`
	Topic         string        `mapstructure:"topic"` // empty lets the model choose
}

// DefaultConfig runs daily at 00:00 UTC and retries every 5 minutes for
// up to an hour when every candidate fails.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		RetryInterval: 5 * time.Minute,
		MaxRetries:    12,
	}
}

// Validate reports an out-of-range time of day.
func (c Config) Validate() error {
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("scheduler hour %d out of range 0-23", c.Hour)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("scheduler minute %d out of range 0-59", c.Minute)
	}
	return nil
}

// Scheduler triggers a generation once per day.
type Scheduler struct {
	gen Generator
	cfg Config
	log *zap.Logger

	// Now and After drive the schedule. Tests replace them before Run.
	Now   func() time.Time
	After func(time.Duration) <-chan time.Time
}

// New builds a scheduler for gen.
func New(gen Generator, cfg Config, log *zap.Logger) *Scheduler {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultConfig().RetryInterval
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Scheduler{
		gen:   gen,
		cfg:   cfg,
		log:   logger.OrNop(log).Named("schedule"),
		Now:   time.Now,
		After: time.After,
	}
}

// NextRun returns the first hour:minute UTC strictly after now.
func NextRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run waits for each daily slot and runs the job until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := NextRun(s.Now(), s.cfg.Hour, s.cfg.Minute)
		s.log.Info("next scheduled generation", zap.Time("at", next))
		if err := s.sleep(ctx, next.Sub(s.Now())); err != nil {
			return nil
		}
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("scheduled generation failed", zap.Error(err))
		}
	}
}

// RunOnce generates one article. When every candidate fails it retries
// every RetryInterval, at most MaxRetries times. Any other error stops the
// retries at once.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	req := generation.Request{Prompt: generation.ArticlePrompt(s.cfg.Topic)}

	for attempt := 0; ; attempt++ {
		res, err := s.gen.Generate(ctx, req)
		if err == nil {
			metrics.ScheduledRuns.WithLabelValues("success").Inc()
			title := ""
			if res.Article != nil {
				title = res.Article.Title
			}
			s.log.Info("scheduled generation succeeded",
				zap.String("candidate", res.Candidate),
				zap.String("title", title),
				zap.Int("retries", attempt))
			return nil
		}

		if !errors.Is(err, orchestrator.ErrExhausted) {
			metrics.ScheduledRuns.WithLabelValues("error").Inc()
			s.log.Error("non-recoverable generation error, not retrying", zap.Error(err))
			return err
		}
		if attempt >= s.cfg.MaxRetries {
			metrics.ScheduledRuns.WithLabelValues("gave_up").Inc()
			return fmt.Errorf("giving up after %d retries: %w", attempt, err)
		}

		metrics.ScheduledRuns.WithLabelValues("retry").Inc()
		s.log.Warn("all candidates failed, retrying later",
			zap.Int("retry", attempt+1),
			zap.Int("max_retries", s.cfg.MaxRetries),
			zap.Duration("in", s.cfg.RetryInterval))
		if err := s.sleep(ctx, s.cfg.RetryInterval); err != nil {
			return err
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if d < 0 {
		d = 0
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.After(d):
		return nil
	}
}
