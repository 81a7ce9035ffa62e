package health

import "context"

// Data summarizes recent generation traffic for the adaptive throttle.
type Data struct {
	ErrorRate    float64 // non-quota failures / attempts, 0..1
	QuotaRate    float64 // quota failures / attempts, 0..1
	P95LatencyMs float64
	Samples      float64 // attempts the rates were computed over
}

// Source is the interface for any component providing health data.
type Source interface {
	// FetchMetrics retrieves the current health data from the source.
	FetchMetrics(ctx context.Context) (Data, error)
}
