package core

import (
	"fmt"

	"github.com/runwaylabs/arrival-simulator/model"
)

// Config is the full parameter surface of a simulation run. Zero
// values are filled in by Normalize from DefaultConfig, so partial
// scenario files stay usable.
type Config struct {
	// InitialDistanceNM is where aircraft appear on radar.
	InitialDistanceNM float64 `json:"initial_distance_nm" yaml:"initial_distance_nm"`
	// SpeedBands is the permitted-velocity table by distance tramo.
	SpeedBands model.SpeedSchedule `json:"speed_bands" yaml:"speed_bands"`
	// ReversalSpeedKt is the absolute marcha atrás speed.
	ReversalSpeedKt float64 `json:"reversal_speed_kt" yaml:"reversal_speed_kt"`

	// SeparationMinMin is the minimum safe separation to the aircraft
	// ahead, in minutes.
	SeparationMinMin float64 `json:"separation_min_min" yaml:"separation_min_min"`
	// SpeedBufferMin is the gap above which a slowed aircraft may
	// return to the band maximum (speed-ladder mode only).
	SpeedBufferMin float64 `json:"speed_buffer_min" yaml:"speed_buffer_min"`
	// ReinsertionMin is the gap a reversing aircraft needs to the
	// nearest in-flight aircraft before re-entering the approach. Must
	// be strictly greater than SeparationMinMin.
	ReinsertionMin float64 `json:"reinsertion_min" yaml:"reinsertion_min"`
	// LandingGapMin is the minimum number of minutes between two
	// consecutive confirmed landings.
	LandingGapMin int `json:"landing_gap_min" yaml:"landing_gap_min"`

	// SpeedLadder enables the graduated response to a separation
	// violation: shed SpeedStepKt per minute and reverse only once the
	// band minimum is breached. When disabled a violation reverses the
	// trailing aircraft immediately.
	SpeedLadder bool    `json:"speed_ladder" yaml:"speed_ladder"`
	SpeedStepKt float64 `json:"speed_step_kt" yaml:"speed_step_kt"`

	// WindAbortProb is the per-minute probability that an in-flight
	// aircraft aborts and reverses. Zero disables wind trials.
	WindAbortProb float64 `json:"wind_abort_prob" yaml:"wind_abort_prob"`

	// Closure is an explicit runway closure window, if any.
	Closure model.ClosureWindow `json:"closure" yaml:"closure"`
	// StormMinutes, when positive and no explicit closure is set,
	// places a random closure of this length inside the horizon.
	StormMinutes int `json:"storm_minutes" yaml:"storm_minutes"`

	// MaxDelayMin is the maximum tolerated delay past the unimpeded
	// arrival estimate before an aircraft is diverted.
	MaxDelayMin int `json:"max_delay_min" yaml:"max_delay_min"`
	// DivertPastHorizon diverts aircraft whose projected landing falls
	// beyond the horizon (airport closes at end of day). When false,
	// such aircraft stay airborne and are reported separately.
	DivertPastHorizon bool `json:"divert_past_horizon" yaml:"divert_past_horizon"`

	// ArrivalRatePerHour drives the Poisson arrival generator.
	ArrivalRatePerHour float64 `json:"arrival_rate_per_hour" yaml:"arrival_rate_per_hour"`
	// Arrivals, when non-nil, bypasses the generator with explicit
	// appearance minutes (the external arrival feed).
	Arrivals []int `json:"arrivals,omitempty" yaml:"arrivals,omitempty"`

	// HorizonMin is the simulation length T in minutes.
	HorizonMin int `json:"horizon_min" yaml:"horizon_min"`
	// TimeStepMin is the kinematic integration step per minute tick.
	TimeStepMin float64 `json:"time_step_min" yaml:"time_step_min"`
	// Seed fixes the run's random stream.
	Seed int64 `json:"seed" yaml:"seed"`
}

// DefaultConfig carries the AEP reference parameters.
func DefaultConfig() Config {
	return Config{
		InitialDistanceNM:  100,
		SpeedBands:         model.DefaultSpeedSchedule(),
		ReversalSpeedKt:    200,
		SeparationMinMin:   4,
		SpeedBufferMin:     5,
		ReinsertionMin:     5,
		LandingGapMin:      10,
		SpeedStepKt:        20,
		MaxDelayMin:        30,
		ArrivalRatePerHour: 3,
		HorizonMin:         720,
		TimeStepMin:        1,
		Seed:               1,
	}
}

// Normalize fills unset fields from the defaults. Explicitly supplied
// zero values for required parameters are indistinguishable from unset
// and are treated as unset.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.InitialDistanceNM == 0 {
		c.InitialDistanceNM = def.InitialDistanceNM
	}
	if len(c.SpeedBands) == 0 {
		c.SpeedBands = def.SpeedBands
	}
	if c.ReversalSpeedKt == 0 {
		c.ReversalSpeedKt = def.ReversalSpeedKt
	}
	if c.SeparationMinMin == 0 {
		c.SeparationMinMin = def.SeparationMinMin
	}
	if c.SpeedBufferMin == 0 {
		c.SpeedBufferMin = def.SpeedBufferMin
	}
	if c.ReinsertionMin == 0 {
		c.ReinsertionMin = def.ReinsertionMin
	}
	if c.LandingGapMin == 0 {
		c.LandingGapMin = def.LandingGapMin
	}
	if c.SpeedStepKt == 0 {
		c.SpeedStepKt = def.SpeedStepKt
	}
	if c.MaxDelayMin == 0 {
		c.MaxDelayMin = def.MaxDelayMin
	}
	if c.ArrivalRatePerHour == 0 && c.Arrivals == nil {
		c.ArrivalRatePerHour = def.ArrivalRatePerHour
	}
	if c.HorizonMin == 0 {
		c.HorizonMin = def.HorizonMin
	}
	if c.TimeStepMin == 0 {
		c.TimeStepMin = def.TimeStepMin
	}
}

// Validate fails fast before a run starts. All errors wrap
// ErrInvalidConfiguration.
func (c Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
	}

	if c.InitialDistanceNM <= 0 {
		return fail("initial distance must be positive, got %g", c.InitialDistanceNM)
	}
	if err := c.SpeedBands.Validate(); err != nil {
		return fail("speed bands: %v", err)
	}
	if c.ReversalSpeedKt <= 0 {
		return fail("reversal speed must be positive, got %g", c.ReversalSpeedKt)
	}
	if c.SeparationMinMin <= 0 {
		return fail("separation minimum must be positive, got %g", c.SeparationMinMin)
	}
	if c.ReinsertionMin <= c.SeparationMinMin {
		return fail("reinsertion buffer %g must exceed separation minimum %g", c.ReinsertionMin, c.SeparationMinMin)
	}
	if c.SpeedLadder && c.SpeedBufferMin < c.SeparationMinMin {
		return fail("speed buffer %g must be at least the separation minimum %g", c.SpeedBufferMin, c.SeparationMinMin)
	}
	if c.SpeedLadder && c.SpeedStepKt <= 0 {
		return fail("speed step must be positive, got %g", c.SpeedStepKt)
	}
	if c.LandingGapMin <= 0 {
		return fail("landing gap must be positive, got %d", c.LandingGapMin)
	}
	if c.WindAbortProb < 0 || c.WindAbortProb > 1 {
		return fail("wind abort probability %g outside [0, 1]", c.WindAbortProb)
	}
	if err := c.Closure.Validate(); err != nil {
		return fail("%v", err)
	}
	if c.StormMinutes < 0 {
		return fail("storm length must be non-negative, got %d", c.StormMinutes)
	}
	if c.StormMinutes > 0 && c.StormMinutes > c.HorizonMin {
		return fail("storm length %d exceeds horizon %d", c.StormMinutes, c.HorizonMin)
	}
	if c.MaxDelayMin <= 0 {
		return fail("max delay bound must be positive, got %d", c.MaxDelayMin)
	}
	if c.Arrivals == nil && c.ArrivalRatePerHour <= 0 {
		return fail("arrival rate must be positive, got %g", c.ArrivalRatePerHour)
	}
	for i, m := range c.Arrivals {
		if m < 0 || m >= c.HorizonMin {
			return fail("arrival %d at minute %d outside horizon [0, %d)", i, m, c.HorizonMin)
		}
		if i > 0 && m <= c.Arrivals[i-1] {
			return fail("arrivals must be strictly increasing, got %d after %d", m, c.Arrivals[i-1])
		}
	}
	if c.HorizonMin <= 0 {
		return fail("horizon must be positive, got %d", c.HorizonMin)
	}
	if c.TimeStepMin <= 0 || c.TimeStepMin > 1 {
		return fail("time step must be in (0, 1], got %g", c.TimeStepMin)
	}
	return nil
}
