package selector

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"GoModelRouter/pkg/candidate"
	"GoModelRouter/pkg/logger"
)

// PoolSource provides the current candidate pool and its scoring settings.
// *store.Store satisfies it.
type PoolSource interface {
	Snapshot() candidate.Pool
	Settings() candidate.Settings
}

// Selector orders candidates for one request. High priority candidates tend
// to come first, but every candidate keeps a chance to lead, so traffic is
// spread in proportion to priority and drifted candidates get re-probed.
type Selector struct {
	source PoolSource
	log    *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand

	// Now is the clock used to score candidates.
	Now func() time.Time
}

// New builds a selector. A nil rnd gets a randomly seeded generator.
func New(source PoolSource, rnd *rand.Rand, log *zap.Logger) *Selector {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{
		source: source,
		rnd:    rnd,
		log:    logger.OrNop(log).Named("selector"),
		Now:    time.Now,
	}
}

// Ordered returns every live candidate in weighted-random order, or the
// static fallback list when the pool is empty.
func (s *Selector) Ordered() []string {
	pool := s.source.Snapshot()
	settings := s.source.Settings()

	if len(pool.Candidates) == 0 {
		s.log.Warn("no cached candidates, using fallback list",
			zap.Int("fallback", len(settings.FallbackIDs)))
		return append([]string(nil), settings.FallbackIDs...)
	}

	now := s.Now()
	items := make([]weighted, len(pool.Candidates))
	for i, r := range pool.Candidates {
		items[i] = weighted{id: r.ID, weight: settings.PriorityScore(r, now)}
	}

	s.mu.Lock()
	order := shuffle(s.rnd, items)
	s.mu.Unlock()

	s.log.Debug("ordered candidates", zap.Strings("order", order))
	return order
}

type weighted struct {
	id     string
	weight float64
}

// shuffle is roulette-wheel sampling without replacement: each round draws
// u in [0, sum of remaining weights) and picks the first candidate whose
// cumulative weight exceeds u.
func shuffle(rnd *rand.Rand, items []weighted) []string {
	remaining := append([]weighted(nil), items...)
	total := 0.0
	for _, it := range remaining {
		total += it.weight
	}

	out := make([]string, 0, len(remaining))
	for len(remaining) > 0 {
		u := rnd.Float64() * total
		pick := len(remaining) - 1 // guards float rounding on the last bucket
		acc := 0.0
		for i, it := range remaining {
			acc += it.weight
			if acc > u {
				pick = i
				break
			}
		}

		out = append(out, remaining[pick].id)
		total -= remaining[pick].weight
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}
	return out
}
