package candidate

import (
	"time"
)

// PerformanceScore is the raw score, decayed when the last success is older
// than the cache duration. Recency of failures is ignored here.
func (s Settings) PerformanceScore(r Record, now time.Time) float64 {
	score := r.Score
	if r.LastSuccess != nil && now.Sub(*r.LastSuccess) > s.CacheDuration {
		score *= s.ScoreDecay
	}
	return clamp(score)
}

// RecencyBonus rewards candidates that have not been attempted for a while.
// A zero lastAttempt means never attempted and earns the full bonus.
func (s Settings) RecencyBonus(lastAttempt, now time.Time) float64 {
	if lastAttempt.IsZero() {
		return s.MaxRecencyBonus
	}
	days := now.Sub(lastAttempt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return min(s.MaxRecencyBonus, days*s.RecencySlope)
}

// PriorityScore is the selection weight. It never drops to zero so every
// candidate keeps some probability of being drawn.
func (s Settings) PriorityScore(r Record, now time.Time) float64 {
	return max(s.Epsilon, s.PerformanceScore(r, now)+s.RecencyBonus(r.LastAttempt(), now))
}

// Scored is a record annotated with its scoring breakdown.
type Scored struct {
	ID           string
	BaseScore    float64
	Performance  float64
	RecencyBonus float64
	Priority     float64
	LastAttempt  time.Time
}

// Explain computes the scoring breakdown for r.
func (s Settings) Explain(r Record, now time.Time) Scored {
	last := r.LastAttempt()
	perf := s.PerformanceScore(r, now)
	bonus := s.RecencyBonus(last, now)
	return Scored{
		ID:           r.ID,
		BaseScore:    r.Score,
		Performance:  perf,
		RecencyBonus: bonus,
		Priority:     max(s.Epsilon, perf+bonus),
		LastAttempt:  last,
	}
}
