package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the arrival simulator
// and satisfies core.MetricsRecorder so the engine can drive it
// directly.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Landings         prometheus.Counter
	Diversions       prometheus.Counter
	Reversals        prometheus.Counter
	Reinsertions     prometheus.Counter
	CongestionEvents prometheus.Counter

	AircraftInFlight  prometheus.Gauge
	AircraftReversing prometheus.Gauge

	LandingDelay prometheus.Histogram
}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Re-registration of identical collectors is tolerated so repeated
// wiring in tests and replication drivers stays cheap.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	landings, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_landings_total",
		Help: "Total confirmed landings across all runs.",
	}), "sim_landings_total")
	if err != nil {
		return nil, err
	}
	diversions, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_diversions_total",
		Help: "Total aircraft diverted to the alternate airport.",
	}), "sim_diversions_total")
	if err != nil {
		return nil, err
	}
	reversals, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_reversals_total",
		Help: "Total marcha atrás transitions (separation or wind).",
	}), "sim_reversals_total")
	if err != nil {
		return nil, err
	}
	reinsertions, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_reinsertions_total",
		Help: "Total reversing aircraft returned to the approach.",
	}), "sim_reinsertions_total")
	if err != nil {
		return nil, err
	}
	congestion, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_congestion_events_total",
		Help: "Total congestion events (aircraft squeezed by traffic ahead).",
	}), "sim_congestion_events_total")
	if err != nil {
		return nil, err
	}

	inFlight, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_aircraft_in_flight",
		Help: "Aircraft currently approaching the runway.",
	}), "sim_aircraft_in_flight")
	if err != nil {
		return nil, err
	}
	reversing, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_aircraft_reversing",
		Help: "Aircraft currently in marcha atrás.",
	}), "sim_aircraft_reversing")
	if err != nil {
		return nil, err
	}

	delay, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_landing_delay_minutes",
		Help:    "Landing delay relative to the unimpeded arrival estimate.",
		Buckets: []float64{0, 1, 2, 5, 10, 15, 20, 30, 45, 60},
	}), "sim_landing_delay_minutes")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:          gatherer,
		Landings:          landings,
		Diversions:        diversions,
		Reversals:         reversals,
		Reinsertions:      reinsertions,
		CongestionEvents:  congestion,
		AircraftInFlight:  inFlight,
		AircraftReversing: reversing,
		LandingDelay:      delay,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetAirborneCounts satisfies core.MetricsRecorder.
func (c *SimCollector) SetAirborneCounts(inFlight, reversing int) {
	if c == nil {
		return
	}
	c.AircraftInFlight.Set(float64(inFlight))
	c.AircraftReversing.Set(float64(reversing))
}

// ObserveLanding records a landing and its delay.
func (c *SimCollector) ObserveLanding(delayMin int) {
	if c == nil {
		return
	}
	c.Landings.Inc()
	c.LandingDelay.Observe(float64(delayMin))
}

// ObserveDiversion records a diversion.
func (c *SimCollector) ObserveDiversion() {
	if c == nil {
		return
	}
	c.Diversions.Inc()
}

// ObserveReversal records a marcha atrás transition.
func (c *SimCollector) ObserveReversal() {
	if c == nil {
		return
	}
	c.Reversals.Inc()
}

// ObserveReinsertion records a reinsertion into the approach.
func (c *SimCollector) ObserveReinsertion() {
	if c == nil {
		return
	}
	c.Reinsertions.Inc()
}

// ObserveCongestion records congestion events for one minute.
func (c *SimCollector) ObserveCongestion(events int) {
	if c == nil || events <= 0 {
		return
	}
	c.CongestionEvents.Add(float64(events))
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
