package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"GoModelRouter/pkg/candidate"
	"GoModelRouter/pkg/logger"
	"GoModelRouter/pkg/metrics"
)

const persistTimeout = 5 * time.Second

// Backend persists a candidate pool snapshot. Backends hold no policy.
type Backend interface {
	Load(ctx context.Context) (candidate.Pool, error)
	Save(ctx context.Context, pool candidate.Pool) error
}

// Store owns the in-memory candidate pool and writes it through to a
// Backend after every mutation. All mutations are serialized by mu, so
// concurrent requests in one process never lose updates. Two processes
// sharing the same backend are still last-writer-wins.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	settings candidate.Settings
	pool     candidate.Pool
	log      *zap.Logger

	// Now is the clock used by every mutation. Tests may replace it before use.
	Now func() time.Time
}

// New creates a store and loads the persisted pool. A load failure is logged
// and leaves the store with an empty pool.
func New(ctx context.Context, backend Backend, settings candidate.Settings, log *zap.Logger) *Store {
	settings.Sanitize()
	s := &Store{
		backend:  backend,
		settings: settings,
		log:      logger.OrNop(log).Named("store"),
		Now:      time.Now,
	}
	s.Load(ctx)
	return s
}

// Settings returns the scoring tunables the store was built with.
func (s *Store) Settings() candidate.Settings {
	return s.settings
}

// Load replaces the in-memory pool with the persisted one. It never fails:
// a missing or unreadable pool yields an empty pool with a zero LastFetch.
func (s *Store) Load(ctx context.Context) candidate.Pool {
	pool, err := s.backend.Load(ctx)
	if err != nil {
		metrics.PersistenceErrors.WithLabelValues("load").Inc()
		s.log.Warn("failed to load candidate pool, starting empty", zap.Error(err))
		pool = candidate.Pool{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool = pool
	metrics.PoolSize.Set(float64(len(pool.Candidates)))
	return pool.Clone()
}

// Snapshot returns a deep copy of the current pool.
func (s *Store) Snapshot() candidate.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.Clone()
}

// IsStale reports whether discovery should refresh the pool.
func (s *Store) IsStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.IsStale(s.Now(), s.settings.CacheDuration)
}

// RecordSuccess applies a successful attempt and persists the pool. Unknown
// ids are ignored.
func (s *Store) RecordSuccess(ctx context.Context, id string) (candidate.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.settings.RecordSuccess(&s.pool, id, s.Now())
	if !ok {
		s.log.Debug("success for candidate outside the pool", zap.String("candidate", id))
		return r, false
	}
	s.persist(ctx)
	s.log.Info("recorded success",
		zap.String("candidate", id),
		zap.Float64("score", r.Score),
		zap.Int64("successes", r.SuccessCount))
	return r, true
}

// RecordFailure applies a failed attempt and persists the pool. A candidate
// reaching MaxFailures consecutive failures is removed in the same step.
func (s *Store) RecordFailure(ctx context.Context, id string) candidate.FailureOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.settings.RecordFailure(&s.pool, id, s.Now())
	if !out.Found {
		s.log.Debug("failure for candidate outside the pool", zap.String("candidate", id))
		return out
	}
	if out.Evicted {
		metrics.Evictions.WithLabelValues("consecutive_failures").Inc()
		s.log.Warn("removing candidate after consecutive failures",
			zap.String("candidate", id),
			zap.Int("consecutive", out.Record.ConsecutiveFailures))
	}
	s.persist(ctx)
	s.log.Info("recorded failure",
		zap.String("candidate", id),
		zap.Float64("score", out.Record.Score),
		zap.Int("consecutive", out.Record.ConsecutiveFailures))
	return out
}

// Merge installs a freshly discovered id list, persists it and then sweeps
// poor performers. It returns the merge summary and the ids the sweep removed.
func (s *Store) Merge(ctx context.Context, ids []string) (candidate.MergeResult, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	res := s.settings.Merge(&s.pool, ids, now)
	s.persist(ctx)
	s.log.Info("merged discovered candidates",
		zap.Int("total", len(s.pool.Candidates)),
		zap.Int("kept", res.Kept),
		zap.Strings("added", res.Added),
		zap.Strings("dropped", res.Dropped))

	return res, s.cleanupLocked(ctx, now)
}

func (s *Store) cleanupLocked(ctx context.Context, now time.Time) []string {
	removed := s.settings.CleanupPoorPerformers(&s.pool, now)
	if len(removed) == 0 {
		return nil
	}
	metrics.Evictions.WithLabelValues("low_score").Add(float64(len(removed)))
	s.persist(ctx)
	s.log.Info("cleaned up poor performers", zap.Strings("removed", removed))
	return removed
}

// persist writes the pool through to the backend. Failures are logged and
// counted; the in-memory pool stays authoritative for this process. The
// write is detached from ctx so a cancelled request still records its outcome.
func (s *Store) persist(ctx context.Context) {
	metrics.PoolSize.Set(float64(len(s.pool.Candidates)))

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.backend.Save(saveCtx, s.pool.Clone()); err != nil {
		metrics.PersistenceErrors.WithLabelValues("save").Inc()
		s.log.Error("failed to save candidate pool", zap.Error(err))
	}
}
