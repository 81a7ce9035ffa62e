package selector

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"GoModelRouter/pkg/candidate"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedPool struct {
	pool     candidate.Pool
	settings candidate.Settings
}

func (f fixedPool) Snapshot() candidate.Pool { return f.pool.Clone() }
func (f fixedPool) Settings() candidate.Settings { return f.settings }

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// attemptedNow marks every record as attempted at epoch so the recency
// bonus is zero and priority equals score.
func attemptedNow(scores map[string]float64) candidate.Pool {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var p candidate.Pool
	for _, id := range ids {
		t := epoch
		p.Candidates = append(p.Candidates, candidate.Record{ID: id, Score: scores[id], LastFailure: &t})
	}
	return p
}

func newSelector(pool candidate.Pool, seed uint64) *Selector {
	s := New(fixedPool{pool: pool, settings: candidate.DefaultSettings()}, seeded(seed), nil)
	s.Now = func() time.Time { return epoch }
	return s
}

func TestOrdered_IsPermutation(t *testing.T) {
	pool := attemptedNow(map[string]float64{"a": 0.9, "b": 0.5, "c": 0.1, "d": 0.0})
	s := newSelector(pool, 1)

	for i := 0; i < 100; i++ {
		got := s.Ordered()
		sort.Strings(got)
		if diff := cmp.Diff([]string{"a", "b", "c", "d"}, got); diff != "" {
			t.Fatalf("not a permutation (-want +got):\n%s", diff)
		}
	}
}

func TestOrdered_ReproducibleWithSeed(t *testing.T) {
	pool := attemptedNow(map[string]float64{"a": 0.9, "b": 0.5, "c": 0.3, "d": 0.2, "e": 0.7})
	first, second := newSelector(pool, 42), newSelector(pool, 42)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first.Ordered(), second.Ordered()); diff != "" {
			t.Fatalf("same seed produced different orders (-a +b):\n%s", diff)
		}
	}
}

func TestOrdered_FirstPickFrequencyMatchesWeights(t *testing.T) {
	scores := map[string]float64{"a": 0.6, "b": 0.3, "c": 0.1}
	s := newSelector(attemptedNow(scores), 7)

	const draws = 60000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		counts[s.Ordered()[0]]++
	}

	total := 1.0
	for id, p := range scores {
		got := float64(counts[id]) / draws
		want := p / total
		if math.Abs(got-want) > 0.01 {
			t.Errorf("%s: frequency %.4f, want %.4f", id, got, want)
		}
	}
}

func TestOrdered_ZeroScoreStillDrawn(t *testing.T) {
	s := newSelector(attemptedNow(map[string]float64{"good": 1.0, "bad": 0.0}), 3)

	led := false
	for i := 0; i < 5000 && !led; i++ {
		led = s.Ordered()[0] == "bad"
	}
	if !led {
		t.Error("epsilon floor should give a zero-score candidate a chance to lead")
	}
}

func TestOrdered_EmptyPoolUsesFallback(t *testing.T) {
	s := newSelector(candidate.Pool{}, 1)
	if diff := cmp.Diff(candidate.DefaultFallbackIDs, s.Ordered()); diff != "" {
		t.Errorf("fallback mismatch (-want +got):\n%s", diff)
	}
}

func TestOrdered_FallbackIsACopy(t *testing.T) {
	s := newSelector(candidate.Pool{}, 1)
	got := s.Ordered()
	got[0] = "mutated"
	if s.Ordered()[0] == "mutated" {
		t.Error("caller mutation leaked into settings")
	}
}

func TestShuffle_SingleCandidate(t *testing.T) {
	got := shuffle(seeded(1), []weighted{{id: "only", weight: 0.01}})
	if diff := cmp.Diff([]string{"only"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
