package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestSimCollectorRecordsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	collector.ObserveLanding(6)
	collector.ObserveLanding(0)
	collector.ObserveDiversion()
	collector.ObserveReversal()
	collector.ObserveReinsertion()
	collector.ObserveCongestion(3)
	collector.ObserveCongestion(0) // quiet minute, no sample
	collector.SetAirborneCounts(4, 1)

	if got := testutil.ToFloat64(collector.Landings); got != 2 {
		t.Fatalf("sim_landings_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Diversions); got != 1 {
		t.Fatalf("sim_diversions_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.CongestionEvents); got != 3 {
		t.Fatalf("sim_congestion_events_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.AircraftInFlight); got != 4 {
		t.Fatalf("sim_aircraft_in_flight = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.AircraftReversing); got != 1 {
		t.Fatalf("sim_aircraft_reversing = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "sim_landing_delay_minutes"); count != 2 {
		t.Fatalf("sim_landing_delay_minutes sample_count = %d, want 2", count)
	}
}

func TestSimCollectorReregistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	second, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("re-registration should reuse collectors: %v", err)
	}

	first.ObserveLanding(2)
	second.ObserveLanding(3)
	if got := testutil.ToFloat64(second.Landings); got != 2 {
		t.Fatalf("shared counter = %v, want 2", got)
	}
}

func TestMetricsHandlerExposesSimSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	collector.ObserveLanding(4)
	collector.SetAirborneCounts(2, 1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"sim_landings_total",
		"sim_diversions_total",
		"sim_reversals_total",
		"sim_reinsertions_total",
		"sim_congestion_events_total",
		"sim_aircraft_in_flight",
		"sim_aircraft_reversing",
		"sim_landing_delay_minutes",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestRunCollectorOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	rc, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("NewRunCollector: %v", err)
	}

	rc.RunStarted()
	rc.RunFinished(5*time.Millisecond, nil)
	rc.RunStarted()
	rc.RunFinished(2*time.Millisecond, errInvariant)

	if got := testutil.ToFloat64(rc.RunsTotal); got != 1 {
		t.Fatalf("sim_runs_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rc.RunsFailed); got != 1 {
		t.Fatalf("sim_runs_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rc.ActiveRuns); got != 0 {
		t.Fatalf("sim_runs_active = %v, want 0", got)
	}
	if count := histogramSampleCount(t, reg, "sim_run_duration_seconds"); count != 2 {
		t.Fatalf("sim_run_duration_seconds sample_count = %d, want 2", count)
	}
}

var errInvariant = errors.New("queue inconsistency")

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string) uint64 {
	t.Helper()

	mf := findFamily(t, gatherer, name)
	if mf == nil {
		return 0
	}
	for _, m := range mf.Metric {
		if h := m.GetHistogram(); h != nil {
			return h.GetSampleCount()
		}
	}
	return 0
}

func findFamily(t *testing.T, gatherer prometheus.Gatherer, name string) *dto.MetricFamily {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
