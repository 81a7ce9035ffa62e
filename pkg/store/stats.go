package store

import (
	"math"
	"sort"
	"time"
)

// CandidateStats is the monitoring view of one candidate.
type CandidateStats struct {
	ID                   string  `json:"id"`
	BaseScore            float64 `json:"baseScore"`
	RecencyBonus         float64 `json:"recencyBonus"`
	FinalScore           float64 `json:"finalScore"`
	SuccessCount         int64   `json:"successCount"`
	FailureCount         int64   `json:"failureCount"`
	ConsecutiveFailures  int     `json:"consecutiveFailures"`
	DaysSinceLastAttempt *int    `json:"daysSinceLastAttempt"`
}

// Stats summarises the pool for operators.
type Stats struct {
	TotalCandidates int              `json:"totalModels"`
	LastFetch       *time.Time       `json:"lastFetch"`
	CacheAge        time.Duration    `json:"cacheAge"`
	IsStale         bool             `json:"isStale"`
	Top             []CandidateStats `json:"topModels"`
}

// Stats ranks candidates by priority score and returns the best topN.
// topN <= 0 returns all of them.
func (s *Store) Stats(topN int) Stats {
	s.mu.Lock()
	pool := s.pool.Clone()
	now := s.Now()
	s.mu.Unlock()

	out := Stats{
		TotalCandidates: len(pool.Candidates),
		IsStale:         pool.IsStale(now, s.settings.CacheDuration),
	}
	if !pool.LastFetch.IsZero() {
		lf := pool.LastFetch
		out.LastFetch = &lf
		out.CacheAge = now.Sub(lf)
	}

	all := make([]CandidateStats, 0, len(pool.Candidates))
	for _, r := range pool.Candidates {
		sc := s.settings.Explain(r, now)
		cs := CandidateStats{
			ID:                  r.ID,
			BaseScore:           round2(sc.BaseScore),
			RecencyBonus:        round2(sc.RecencyBonus),
			FinalScore:          round2(sc.Priority),
			SuccessCount:        r.SuccessCount,
			FailureCount:        r.FailureCount,
			ConsecutiveFailures: r.ConsecutiveFailures,
		}
		if !sc.LastAttempt.IsZero() {
			days := int(now.Sub(sc.LastAttempt) / (24 * time.Hour))
			cs.DaysSinceLastAttempt = &days
		}
		all = append(all, cs)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].FinalScore > all[j].FinalScore })
	if topN > 0 && len(all) > topN {
		all = all[:topN]
	}
	out.Top = all
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
