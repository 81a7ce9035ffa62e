package candidate

import "time"

// FailureOutcome describes what RecordFailure did to a candidate.
type FailureOutcome struct {
	Record  Record
	Found   bool
	Evicted bool
}

// RecordSuccess applies a successful attempt to id. It reports false if id
// is not in the pool.
func (s Settings) RecordSuccess(p *Pool, id string, now time.Time) (Record, bool) {
	i := p.Index(id)
	if i < 0 {
		return Record{}, false
	}
	r := &p.Candidates[i]
	r.SuccessCount++
	t := now
	r.LastSuccess = &t
	r.ConsecutiveFailures = 0
	r.Score = clamp(r.Score + s.SuccessDelta)
	return *r, true
}

// RecordFailure applies a failed attempt to id and removes the record once
// it reaches MaxFailures consecutive failures.
func (s Settings) RecordFailure(p *Pool, id string, now time.Time) FailureOutcome {
	i := p.Index(id)
	if i < 0 {
		return FailureOutcome{}
	}
	r := &p.Candidates[i]
	r.FailureCount++
	t := now
	r.LastFailure = &t
	r.ConsecutiveFailures++
	r.Score = clamp(r.Score - s.FailureDelta)

	out := FailureOutcome{Record: *r, Found: true}
	if r.ConsecutiveFailures >= s.MaxFailures {
		p.Candidates = append(p.Candidates[:i], p.Candidates[i+1:]...)
		out.Evicted = true
	}
	return out
}

// MergeResult summarises a discovery merge.
type MergeResult struct {
	Kept    int
	Added   []string
	Dropped []string
}

// Merge replaces the pool membership with ids. Existing records are kept
// verbatim, unknown ids are seeded neutrally and records whose id is absent
// from ids are dropped. Duplicate ids in the input are collapsed.
func (s Settings) Merge(p *Pool, ids []string, now time.Time) MergeResult {
	existing := make(map[string]Record, len(p.Candidates))
	for _, r := range p.Candidates {
		existing[r.ID] = r
	}

	var res MergeResult
	seen := make(map[string]struct{}, len(ids))
	merged := make([]Record, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		if r, ok := existing[id]; ok {
			merged = append(merged, r)
			res.Kept++
			continue
		}
		merged = append(merged, NewRecord(id, s.NeutralScore))
		res.Added = append(res.Added, id)
	}
	for _, r := range p.Candidates {
		if _, ok := seen[r.ID]; !ok {
			res.Dropped = append(res.Dropped, r.ID)
		}
	}

	p.Candidates = merged
	p.LastFetch = now
	return res
}

// CleanupPoorPerformers removes candidates that never succeeded and whose
// performance score has fallen to the low threshold. It returns the removed
// ids. A single historical success protects a candidate from this sweep.
func (s Settings) CleanupPoorPerformers(p *Pool, now time.Time) []string {
	var removed []string
	kept := p.Candidates[:0]
	for _, r := range p.Candidates {
		if r.SuccessCount == 0 && s.PerformanceScore(r, now) <= s.LowScoreThreshold {
			removed = append(removed, r.ID)
			continue
		}
		kept = append(kept, r)
	}
	p.Candidates = kept
	return removed
}
