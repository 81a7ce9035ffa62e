package health

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"

	"GoModelRouter/pkg/logger"
	"GoModelRouter/pkg/metrics"
)

const queryTimeout = 3 * time.Second

// PrometheusSource reads router health from a Prometheus server that scrapes
// every router instance, so the throttle reacts to fleet-wide traffic.
type PrometheusSource struct {
	Client v1.API
	Window time.Duration
	log    *zap.Logger
}

// NewPrometheusSource initializes the Prometheus client connection.
func NewPrometheusSource(promURL string, window time.Duration, log *zap.Logger) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: promURL})
	if err != nil {
		return nil, fmt.Errorf("error creating Prometheus client: %w", err)
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &PrometheusSource{
		Client: v1.NewAPI(client),
		Window: window,
		log:    logger.OrNop(log).Named("health"),
	}, nil
}

func (p *PrometheusSource) queries() (samples, errRate, quotaRate, p95 string) {
	w := model.Duration(p.Window).String()
	total := fmt.Sprintf("sum(rate(%s[%s]))", metrics.AttemptsTotalName, w)
	samples = fmt.Sprintf("sum(increase(%s[%s]))", metrics.AttemptsTotalName, w)
	errRate = fmt.Sprintf(`sum(rate(%s{outcome="failure",reason!~"quota|canceled"}[%s])) / %s`,
		metrics.AttemptsTotalName, w, total)
	quotaRate = fmt.Sprintf(`sum(rate(%s{reason="quota"}[%s])) / %s`,
		metrics.AttemptsTotalName, w, total)
	p95 = fmt.Sprintf("histogram_quantile(0.95, sum by (le) (rate(%s_bucket[%s])))",
		metrics.AttemptDurationName, w)
	return samples, errRate, quotaRate, p95
}

// FetchMetrics executes PromQL queries and converts the results into Data.
func (p *PrometheusSource) FetchMetrics(ctx context.Context) (Data, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	now := time.Now()

	scalar := func(query string) (float64, error) {
		result, warnings, err := p.Client.Query(ctx, query, now)
		if err != nil {
			return 0, fmt.Errorf("prometheus query %q: %w", query, err)
		}
		if len(warnings) > 0 {
			p.log.Warn("prometheus query warnings", zap.String("query", query), zap.Strings("warnings", warnings))
		}
		v, ok := result.(model.Vector)
		if !ok || len(v) == 0 {
			return 0, nil
		}
		f := float64(v[0].Value)
		// No traffic yields NaN from the ratio queries.
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, nil
		}
		return f, nil
	}

	samplesQ, errQ, quotaQ, p95Q := p.queries()
	var data Data
	var err error
	if data.Samples, err = scalar(samplesQ); err != nil {
		return Data{}, err
	}
	if data.ErrorRate, err = scalar(errQ); err != nil {
		return Data{}, err
	}
	if data.QuotaRate, err = scalar(quotaQ); err != nil {
		return Data{}, err
	}
	latencySec, err := scalar(p95Q)
	if err != nil {
		return Data{}, err
	}
	data.P95LatencyMs = latencySec * 1000
	return data, nil
}
