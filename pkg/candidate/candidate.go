package candidate

import (
	"time"
)

// Record holds the performance history of one generation backend.
type Record struct {
	ID                  string     `json:"id"`
	SuccessCount        int64      `json:"successCount"`
	FailureCount        int64      `json:"failureCount"`
	LastSuccess         *time.Time `json:"lastSuccess"`
	LastFailure         *time.Time `json:"lastFailure"`
	Score               float64    `json:"score"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
}

// LastAttempt returns the later of LastSuccess and LastFailure, or the zero
// time if the candidate was never attempted.
func (r Record) LastAttempt() time.Time {
	var last time.Time
	if r.LastSuccess != nil {
		last = *r.LastSuccess
	}
	if r.LastFailure != nil && r.LastFailure.After(last) {
		last = *r.LastFailure
	}
	return last
}

// Pool is the persisted candidate cache.
type Pool struct {
	Candidates []Record  `json:"models"`
	LastFetch  time.Time `json:"lastFetch"`
}

// NewRecord seeds a freshly discovered candidate with a neutral score.
func NewRecord(id string, neutral float64) Record {
	return Record{ID: id, Score: clamp(neutral)}
}

// Index returns the position of id in the pool, or -1.
func (p Pool) Index(id string) int {
	for i := range p.Candidates {
		if p.Candidates[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the record for id.
func (p Pool) Get(id string) (Record, bool) {
	if i := p.Index(id); i >= 0 {
		return p.Candidates[i], true
	}
	return Record{}, false
}

// IDs lists candidate ids in pool order.
func (p Pool) IDs() []string {
	ids := make([]string, 0, len(p.Candidates))
	for _, r := range p.Candidates {
		ids = append(ids, r.ID)
	}
	return ids
}

// Clone returns a deep copy, so callers can read a snapshot without holding
// the store lock.
func (p Pool) Clone() Pool {
	out := Pool{LastFetch: p.LastFetch, Candidates: make([]Record, len(p.Candidates))}
	for i, r := range p.Candidates {
		if r.LastSuccess != nil {
			t := *r.LastSuccess
			r.LastSuccess = &t
		}
		if r.LastFailure != nil {
			t := *r.LastFailure
			r.LastFailure = &t
		}
		out.Candidates[i] = r
	}
	return out
}

// IsStale reports whether the pool should be refreshed from discovery.
func (p Pool) IsStale(now time.Time, maxAge time.Duration) bool {
	if len(p.Candidates) == 0 {
		return true
	}
	return now.Sub(p.LastFetch) > maxAge
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
