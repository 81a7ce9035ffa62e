package health

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"GoModelRouter/pkg/generation"
)

type outcome struct {
	at      time.Time
	reason  generation.Reason
	elapsed time.Duration
}

// OutcomeWindow computes Data from attempt outcomes observed in this
// process over a sliding time window. It satisfies orchestrator.Observer.
type OutcomeWindow struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	entries  []outcome

	// Now is the window clock. Tests may replace it before use.
	Now func() time.Time
}

// NewOutcomeWindow keeps at most capacity outcomes no older than window.
func NewOutcomeWindow(window time.Duration, capacity int) *OutcomeWindow {
	if window <= 0 {
		window = 5 * time.Minute
	}
	if capacity <= 0 {
		capacity = 1024
	}
	return &OutcomeWindow{window: window, capacity: capacity, Now: time.Now}
}

// Observe records one finished attempt. An empty reason is a success.
// Cancellations say nothing about upstream health and are ignored.
func (w *OutcomeWindow) Observe(reason generation.Reason, elapsed time.Duration) {
	if reason == generation.ReasonCanceled {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, outcome{at: w.Now(), reason: reason, elapsed: elapsed})
	if over := len(w.entries) - w.capacity; over > 0 {
		w.entries = append(w.entries[:0], w.entries[over:]...)
	}
}

// FetchMetrics implements Source.
func (w *OutcomeWindow) FetchMetrics(_ context.Context) (Data, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.Now().Add(-w.window)
	i := 0
	for i < len(w.entries) && w.entries[i].at.Before(cutoff) {
		i++
	}
	w.entries = append(w.entries[:0], w.entries[i:]...)

	n := len(w.entries)
	if n == 0 {
		return Data{}, nil
	}

	var errs, quota int
	latencies := make([]float64, 0, n)
	for _, e := range w.entries {
		switch e.reason {
		case "":
		case generation.ReasonQuota:
			quota++
		default:
			errs++
		}
		latencies = append(latencies, float64(e.elapsed)/float64(time.Millisecond))
	}
	sort.Float64s(latencies)

	return Data{
		ErrorRate:    float64(errs) / float64(n),
		QuotaRate:    float64(quota) / float64(n),
		P95LatencyMs: percentile(latencies, 0.95),
		Samples:      float64(n),
	}, nil
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []float64, q float64) float64 {
	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
