package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunCollector exposes replication-driver metrics: one sample per
// completed simulation run, as opposed to the per-event series of
// SimCollector.
type RunCollector struct {
	gatherer prometheus.Gatherer

	RunDuration prometheus.Histogram
	RunsTotal   prometheus.Counter
	RunsFailed  prometheus.Counter
	ActiveRuns  prometheus.Gauge
}

// NewRunCollector registers run metrics against the provided registerer.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_run_duration_seconds",
		Help:    "Wall-clock duration of one simulation run.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	duration, err := registerHistogram(reg, duration, "sim_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	total := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_runs_total",
		Help: "Completed simulation runs.",
	})
	total, err = registerCounter(reg, total, "sim_runs_total")
	if err != nil {
		return nil, err
	}

	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_runs_failed_total",
		Help: "Runs aborted by an invariant violation or setup error.",
	})
	failed, err = registerCounter(reg, failed, "sim_runs_failed_total")
	if err != nil {
		return nil, err
	}

	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_runs_active",
		Help: "Runs currently executing.",
	})
	active, err = registerGauge(reg, active, "sim_runs_active")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:    gatherer,
		RunDuration: duration,
		RunsTotal:   total,
		RunsFailed:  failed,
		ActiveRuns:  active,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *RunCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// RunStarted marks a run in flight.
func (c *RunCollector) RunStarted() {
	if c == nil || c.ActiveRuns == nil {
		return
	}
	c.ActiveRuns.Inc()
}

// RunFinished records one run's outcome and duration.
func (c *RunCollector) RunFinished(d time.Duration, err error) {
	if c == nil {
		return
	}
	if c.ActiveRuns != nil {
		c.ActiveRuns.Dec()
	}
	if c.RunDuration != nil {
		c.RunDuration.Observe(d.Seconds())
	}
	if err != nil {
		if c.RunsFailed != nil {
			c.RunsFailed.Inc()
		}
		return
	}
	if c.RunsTotal != nil {
		c.RunsTotal.Inc()
	}
}
