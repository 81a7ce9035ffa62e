package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"GoModelRouter/pkg/generation"
)

func TestOutcomeWindow_Rates(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := NewOutcomeWindow(time.Minute, 100)
	w.Now = func() time.Time { return now }

	for i := 1; i <= 16; i++ {
		w.Observe("", time.Duration(i)*100*time.Millisecond)
	}
	w.Observe(generation.ReasonQuota, time.Second)
	w.Observe(generation.ReasonTransient, time.Second)
	w.Observe(generation.ReasonMalformed, time.Second)
	w.Observe(generation.ReasonAuth, time.Second)
	w.Observe(generation.ReasonCanceled, time.Hour)

	got, err := w.FetchMetrics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := Data{ErrorRate: 0.15, QuotaRate: 0.05, P95LatencyMs: 1500, Samples: 20}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestOutcomeWindow_ExpiresOldEntries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := NewOutcomeWindow(time.Minute, 100)
	w.Now = func() time.Time { return now }

	w.Observe(generation.ReasonTransient, time.Second)
	now = now.Add(2 * time.Minute)
	w.Observe("", time.Second)

	got, _ := w.FetchMetrics(context.Background())
	if got.Samples != 1 || got.ErrorRate != 0 {
		t.Errorf("stale outcome was counted: %+v", got)
	}
}

func TestOutcomeWindow_Capacity(t *testing.T) {
	w := NewOutcomeWindow(time.Hour, 3)
	for i := 0; i < 10; i++ {
		w.Observe(generation.ReasonTransient, time.Second)
	}
	w.Observe("", time.Second)

	got, _ := w.FetchMetrics(context.Background())
	if got.Samples != 3 {
		t.Errorf("samples = %v, want 3", got.Samples)
	}
}

func TestOutcomeWindow_Empty(t *testing.T) {
	got, err := NewOutcomeWindow(0, 0).FetchMetrics(context.Background())
	if err != nil || got != (Data{}) {
		t.Errorf("got %+v, %v", got, err)
	}
}

func promServer(t *testing.T, values func(query string) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1748779200,"%s"]}]}}`,
			values(r.Form.Get("query")))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPrometheusSource_FetchMetrics(t *testing.T) {
	srv := promServer(t, func(q string) string {
		switch {
		case strings.Contains(q, "increase("):
			return "40"
		case strings.Contains(q, `outcome="failure"`):
			return "0.2"
		case strings.Contains(q, `reason="quota"`):
			return "0.1"
		case strings.Contains(q, "histogram_quantile"):
			return "1.5"
		}
		t.Errorf("unexpected query %q", q)
		return "0"
	})

	src, err := NewPrometheusSource(srv.URL, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := src.FetchMetrics(context.Background())
	if err != nil {
		t.Fatalf("FetchMetrics: %v", err)
	}
	want := Data{ErrorRate: 0.2, QuotaRate: 0.1, P95LatencyMs: 1500, Samples: 40}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestPrometheusSource_NoTrafficIsZero(t *testing.T) {
	srv := promServer(t, func(string) string { return "NaN" })
	src, err := NewPrometheusSource(srv.URL, time.Minute, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := src.FetchMetrics(context.Background())
	if err != nil || got != (Data{}) {
		t.Errorf("got %+v, %v", got, err)
	}
}

func TestPrometheusSource_QueryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":"error","errorType":"bad_data","error":"parse error"}`)
	}))
	t.Cleanup(srv.Close)

	src, err := NewPrometheusSource(srv.URL, time.Minute, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.FetchMetrics(context.Background()); err == nil {
		t.Error("expected an error from a failing query")
	}
}

func TestPrometheusSource_QueriesUseWindow(t *testing.T) {
	src := &PrometheusSource{Window: 10 * time.Minute}
	samples, errRate, quota, p95 := src.queries()
	for _, q := range []string{samples, errRate, quota, p95} {
		if !strings.Contains(q, "[10m]") {
			t.Errorf("query %q does not use the window", q)
		}
	}
}
