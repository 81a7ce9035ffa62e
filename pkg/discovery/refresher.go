package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"GoModelRouter/pkg/logger"
	"GoModelRouter/pkg/metrics"
	"GoModelRouter/pkg/store"
)

// Refresher keeps the store's pool in step with the catalog.
type Refresher struct {
	store   *store.Store
	catalog Catalog
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewRefresher wires a catalog to a store. limiter bounds how often the
// catalog is queried while the pool stays stale (an empty pool is stale on
// every request); nil means unbounded.
func NewRefresher(s *store.Store, catalog Catalog, limiter *rate.Limiter, log *zap.Logger) *Refresher {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Refresher{
		store:   s,
		catalog: catalog,
		limiter: limiter,
		log:     logger.OrNop(log).Named("discovery"),
	}
}

// Throttle allows one unforced catalog query per interval.
func Throttle(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// RefreshResult reports what a refresh did.
type RefreshResult struct {
	Attempted bool     `json:"attempted"`
	Fetched   int      `json:"fetched"`
	Added     []string `json:"added,omitempty"`
	Dropped   []string `json:"dropped,omitempty"`
	Evicted   []string `json:"evicted,omitempty"`
}

// RefreshIfStale queries the catalog when the pool is stale or empty. Any
// discovery failure leaves the existing pool untouched.
func (r *Refresher) RefreshIfStale(ctx context.Context) RefreshResult {
	if !r.store.IsStale() {
		return RefreshResult{}
	}
	r.log.Info("candidate pool is stale or empty, refreshing")
	return r.refresh(ctx, false)
}

// Refresh queries the catalog regardless of pool age. Forced refreshes
// bypass the throttle.
func (r *Refresher) Refresh(ctx context.Context) RefreshResult {
	return r.refresh(ctx, true)
}

func (r *Refresher) refresh(ctx context.Context, force bool) RefreshResult {
	if !force && !r.limiter.Allow() {
		metrics.DiscoveryRefreshes.WithLabelValues("throttled").Inc()
		r.log.Debug("discovery refresh throttled")
		return RefreshResult{}
	}

	res := RefreshResult{Attempted: true}
	ids := r.catalog.FetchCandidates(ctx)
	res.Fetched = len(ids)
	if len(ids) == 0 {
		metrics.DiscoveryRefreshes.WithLabelValues("empty").Inc()
		r.log.Warn("discovery returned no candidates, keeping existing pool")
		return res
	}

	merged, evicted := r.store.Merge(ctx, ids)
	metrics.DiscoveryRefreshes.WithLabelValues("merged").Inc()
	res.Added = merged.Added
	res.Dropped = merged.Dropped
	res.Evicted = evicted
	return res
}
