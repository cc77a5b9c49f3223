package core

import (
	"context"
	"math"
	"math/rand"

	"github.com/runwaylabs/arrival-simulator/fleet"
	"github.com/runwaylabs/arrival-simulator/internal/logging"
	"github.com/runwaylabs/arrival-simulator/model"
	"github.com/runwaylabs/arrival-simulator/timectrl"
)

// MetricsRecorder receives simulation events for export. The engine
// drives it directly; a nil recorder is replaced with a no-op.
type MetricsRecorder interface {
	SetAirborneCounts(inFlight, reversing int)
	ObserveLanding(delayMin int)
	ObserveDiversion()
	ObserveReversal()
	ObserveReinsertion()
	ObserveCongestion(events int)
}

type noopMetrics struct{}

func (noopMetrics) SetAirborneCounts(int, int) {}
func (noopMetrics) ObserveLanding(int)         {}
func (noopMetrics) ObserveDiversion()          {}
func (noopMetrics) ObserveReversal()           {}
func (noopMetrics) ObserveReinsertion()        {}
func (noopMetrics) ObserveCongestion(int)      {}

// Option customises Engine construction.
type Option func(*Engine)

// WithLogger attaches a structured logger for run-level events.
func WithLogger(log logging.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetricsRecorder attaches a metrics recorder for simulation
// counters and gauges.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithFleetObserver subscribes fn to every run's fleet registry, so
// callers observe aircraft transitions without reaching into run
// internals.
func WithFleetObserver(fn func(fleet.Event)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.observers = append(e.observers, fn)
		}
	}
}

// Engine owns the simulation clock and drives admission, kinematics,
// wind trials, separation, and diversion minute by minute. A single
// Engine can execute many runs; each run owns its own queue, fleet,
// and random stream, so runs are independent and reproducible.
type Engine struct {
	cfg       Config
	log       logging.Logger
	metrics   MetricsRecorder
	observers []func(fleet.Event)
}

// NewEngine validates the configuration and builds an engine. The
// configuration is normalized first, so partially specified configs
// inherit defaults.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		log:     logging.Noop(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Config returns the normalized configuration the engine runs with.
func (e *Engine) Config() Config { return e.cfg }

// Run executes one full simulation over the configured horizon and
// returns its record. ctx is used for logging only; a run always
// completes after exactly HorizonMin minutes unless an invariant
// violation aborts it.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	return e.RunSeeded(ctx, e.cfg.Seed)
}

// RunSeeded executes one run with an explicit seed, leaving the rest
// of the configuration untouched. Replication drivers use this to fan
// out independent runs from a base scenario.
func (e *Engine) RunSeeded(ctx context.Context, seed int64) (*RunResult, error) {
	cfg := e.cfg
	cfg.Seed = seed

	log := e.log.With(logging.Int64("seed", seed))
	rng := rand.New(rand.NewSource(seed))

	// Fixed draw order: arrivals first, then storm placement, then one
	// wind trial per in-flight aircraft per minute inside the loop.
	arrivals := cfg.Arrivals
	if arrivals == nil {
		arrivals = GenerateArrivals(rng, cfg.ArrivalRatePerHour, cfg.HorizonMin)
	}
	closure := cfg.Closure
	if closure.IsZero() && cfg.StormMinutes > 0 {
		closure = PlaceStorm(rng, cfg.HorizonMin, cfg.StormMinutes)
	}

	st := &runState{
		engine:      e,
		cfg:         cfg,
		log:         log,
		rng:         rng,
		registry:    fleet.NewRegistry(),
		queue:       NewApproachQueue(),
		separation:  NewSeparationPolicy(cfg),
		diversion:   NewDiversionPolicy(cfg),
		closure:     closure,
		arrivals:    arrivals,
		lastLanding: -cfg.LandingGapMin,
		result: &RunResult{
			Config:  cfg,
			Closure: closure,
		},
	}
	for _, fn := range e.observers {
		st.registry.Subscribe(fn)
	}
	for i, minute := range arrivals {
		a := model.NewAircraft(i+1, minute, cfg.InitialDistanceNM, cfg.SpeedBands)
		if err := st.registry.Add(a); err != nil {
			return nil, err
		}
	}

	log.Info(ctx, "run starting",
		logging.Int("horizon_min", cfg.HorizonMin),
		logging.Int("aircraft", len(arrivals)),
		logging.String("closure", closure.String()),
	)

	clock := timectrl.NewController()
	clock.AddListener(func(minute int) error {
		return st.step(ctx, minute)
	})
	if err := clock.Run(cfg.HorizonMin); err != nil {
		return nil, err
	}

	st.finish()

	log.Info(ctx, "run complete",
		logging.Int("landed", st.result.Landed),
		logging.Int("diverted", st.result.Diverted),
		logging.Int("airborne_at_end", st.result.AirborneAtEnd),
		logging.Int("congestion_events", st.result.CongestionEvents),
	)
	return st.result, nil
}

// runState is the mutable state of one run in flight.
type runState struct {
	engine *Engine
	cfg    Config
	log    logging.Logger
	rng    *rand.Rand

	registry   *fleet.Registry
	queue      *ApproachQueue
	separation *SeparationPolicy
	diversion  *DiversionPolicy

	closure     model.ClosureWindow
	arrivals    []int
	nextArrival int
	lastLanding int

	result *RunResult
}

// step executes one minute of the driver loop in the fixed order:
// admit, sort, advance, wind trials, separation/reinsertion,
// diversion/closure, record.
func (st *runState) step(ctx context.Context, minute int) error {
	st.admit(ctx, minute)
	st.queue.Sort()
	st.advance(minute)
	st.windTrials(ctx, minute)
	st.applySeparation(ctx, minute)
	st.applyDiversion(ctx, minute)

	if err := st.queue.DetectInconsistencies(); err != nil {
		st.log.Error(ctx, "aborting run", logging.Int("minute", minute), logging.Any("error", err.Error()))
		return err
	}

	st.record(minute)
	return nil
}

func (st *runState) admit(ctx context.Context, minute int) {
	for st.nextArrival < len(st.arrivals) && st.arrivals[st.nextArrival] == minute {
		a, err := st.registry.Get(st.nextArrival + 1)
		if err != nil {
			st.nextArrival++
			continue
		}
		st.queue.Insert(a)
		st.nextArrival++
		st.log.Debug(ctx, "aircraft on radar",
			logging.Int("aircraft", a.ID),
			logging.Int("minute", minute),
			logging.Int("unimpeded_arrival", a.UnimpededArrival),
		)
	}
}

func (st *runState) advance(minute int) {
	dt := st.cfg.TimeStepMin
	substeps := int(math.Round(1 / dt))
	if substeps < 1 {
		substeps = 1
	}
	for _, a := range st.queue.All() {
		for s := 0; s < substeps; s++ {
			a.Advance(minute, dt)
		}
	}
}

func (st *runState) windTrials(ctx context.Context, minute int) {
	if st.cfg.WindAbortProb <= 0 {
		return
	}
	for _, a := range st.queue.All() {
		if a.State() != model.StateInFlight {
			continue
		}
		if st.rng.Float64() >= st.cfg.WindAbortProb {
			continue
		}
		if err := a.BeginReversal(st.cfg.ReversalSpeedKt); err != nil {
			continue
		}
		st.result.WindAborts++
		st.result.Reversals++
		st.engine.metrics.ObserveReversal()
		st.registry.Notify(fleet.Event{Type: fleet.EventReversed, AircraftID: a.ID, Minute: minute, DelayMin: a.DelayMin(minute)})
		st.log.Debug(ctx, "wind abort", logging.Int("aircraft", a.ID), logging.Int("minute", minute))
	}
}

func (st *runState) applySeparation(ctx context.Context, minute int) {
	out := st.separation.Apply(st.queue, minute, st.lastLanding, st.closure.Covers(minute))

	st.result.CongestionEvents += out.CongestionEvents
	st.engine.metrics.ObserveCongestion(out.CongestionEvents)

	for _, a := range out.Reversals {
		st.result.Reversals++
		st.engine.metrics.ObserveReversal()
		st.registry.Notify(fleet.Event{Type: fleet.EventReversed, AircraftID: a.ID, Minute: minute, DelayMin: a.DelayMin(minute)})
		st.log.Debug(ctx, "separation reversal", logging.Int("aircraft", a.ID), logging.Int("minute", minute))
	}
	for _, a := range out.Reinsertions {
		st.result.Reinsertions++
		st.engine.metrics.ObserveReinsertion()
		st.registry.Notify(fleet.Event{Type: fleet.EventReinserted, AircraftID: a.ID, Minute: minute, DelayMin: a.DelayMin(minute)})
		st.log.Debug(ctx, "reinserted", logging.Int("aircraft", a.ID), logging.Int("minute", minute))
	}
	if a := out.Landed; a != nil {
		st.lastLanding = minute
		st.result.Landed++
		st.result.LandingMinutes = append(st.result.LandingMinutes, minute)
		st.engine.metrics.ObserveLanding(a.DelayMin(minute))
		st.registry.Notify(fleet.Event{Type: fleet.EventLanded, AircraftID: a.ID, Minute: minute, DelayMin: a.DelayMin(minute)})
		st.log.Debug(ctx, "landed",
			logging.Int("aircraft", a.ID),
			logging.Int("minute", minute),
			logging.Int("delay_min", a.DelayMin(minute)),
		)
	}
}

func (st *runState) applyDiversion(ctx context.Context, minute int) {
	for _, a := range st.diversion.Apply(st.queue, minute, st.closure) {
		st.result.Diverted++
		st.engine.metrics.ObserveDiversion()
		st.registry.Notify(fleet.Event{Type: fleet.EventDiverted, AircraftID: a.ID, Minute: minute, DelayMin: a.DelayMin(minute)})
		st.log.Debug(ctx, "diverted",
			logging.Int("aircraft", a.ID),
			logging.Int("minute", minute),
			logging.Int("delay_min", a.DelayMin(minute)),
		)
	}
}

func (st *runState) record(minute int) {
	inFlight, reversing := 0, 0
	for _, a := range st.queue.All() {
		switch a.State() {
		case model.StateInFlight:
			inFlight++
		case model.StateReversing:
			reversing++
		}
	}
	st.engine.metrics.SetAirborneCounts(inFlight, reversing)
	st.result.Minutes = append(st.result.Minutes, MinuteRecord{
		Minute:    minute,
		InFlight:  inFlight,
		Reversing: reversing,
		Landed:    st.result.Landed,
		Diverted:  st.result.Diverted,
	})
}

// finish freezes the run record once the horizon is reached. Aircraft
// still airborne keep their state.
func (st *runState) finish() {
	st.result.Aircraft = st.registry.List()
	st.result.AirborneAtEnd = st.queue.Len()
	st.engine.metrics.SetAirborneCounts(0, 0)
}
