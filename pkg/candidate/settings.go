package candidate

import "time"

// Day is the unit the recency slope is expressed in.
const Day = 24 * time.Hour

// DefaultFallbackIDs are known-good instruction-tuned candidates tried when
// the pool is empty.
var DefaultFallbackIDs = []string{
	"Qwen/Qwen2.5-7B-Instruct",
	"Qwen/Qwen2.5-3B-Instruct",
	"meta-llama/Llama-3.1-8B-Instruct",
	"Qwen/Qwen2.5-1.5B-Instruct",
	"mistralai/Mistral-Nemo-12B-Instruct",
}

// Settings holds the scoring and eviction tunables.
type Settings struct {
	CacheDuration     time.Duration `mapstructure:"cache_duration"` // pool refresh age, also the "stale success" age
	MaxFailures       int           `mapstructure:"max_failures"`   // consecutive failures before hard eviction
	ScoreDecay        float64       `mapstructure:"score_decay"`    // applied to stale successful candidates
	SuccessDelta      float64       `mapstructure:"success_delta"`
	FailureDelta      float64       `mapstructure:"failure_delta"`
	NeutralScore      float64       `mapstructure:"neutral_score"` // score of a newly discovered candidate
	MaxRecencyBonus   float64       `mapstructure:"max_recency_bonus"`
	RecencySlope      float64       `mapstructure:"recency_slope"` // bonus per day since last attempt
	LowScoreThreshold float64       `mapstructure:"low_score_threshold"`
	Epsilon           float64       `mapstructure:"epsilon"` // floor of the priority score
	FallbackIDs       []string      `mapstructure:"fallback_ids"`
}

// DefaultSettings returns the production tunables.
func DefaultSettings() Settings {
	return Settings{
		CacheDuration:     30 * Day,
		MaxFailures:       3,
		ScoreDecay:        0.95,
		SuccessDelta:      0.1,
		FailureDelta:      0.2,
		NeutralScore:      0.5,
		MaxRecencyBonus:   0.3,
		RecencySlope:      0.01,
		LowScoreThreshold: 0.1,
		Epsilon:           0.01,
		FallbackIDs:       append([]string(nil), DefaultFallbackIDs...),
	}
}

// Sanitize replaces out-of-range values with defaults.
func (s *Settings) Sanitize() {
	d := DefaultSettings()
	if s.CacheDuration <= 0 {
		s.CacheDuration = d.CacheDuration
	}
	if s.MaxFailures <= 0 {
		s.MaxFailures = d.MaxFailures
	}
	if s.ScoreDecay <= 0 || s.ScoreDecay > 1 {
		s.ScoreDecay = d.ScoreDecay
	}
	if s.SuccessDelta < 0 {
		s.SuccessDelta = d.SuccessDelta
	}
	if s.FailureDelta < 0 {
		s.FailureDelta = d.FailureDelta
	}
	if s.NeutralScore < 0 || s.NeutralScore > 1 {
		s.NeutralScore = d.NeutralScore
	}
	if s.MaxRecencyBonus < 0 {
		s.MaxRecencyBonus = d.MaxRecencyBonus
	}
	if s.RecencySlope < 0 {
		s.RecencySlope = d.RecencySlope
	}
	if s.LowScoreThreshold < 0 {
		s.LowScoreThreshold = d.LowScoreThreshold
	}
	if s.Epsilon <= 0 {
		s.Epsilon = d.Epsilon
	}
	if len(s.FallbackIDs) == 0 {
		s.FallbackIDs = d.FallbackIDs
	}
}
