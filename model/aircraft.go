package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrTerminalState is returned when a mutation is attempted on an
// aircraft that has already landed or diverted.
var ErrTerminalState = errors.New("aircraft is in a terminal state")

const unset = -1

// Aircraft models a single arrival converging on the runway along a
// one-dimensional track (distance to threshold, nautical miles). The
// engine is the only mutator; all transitions are guarded so Landed and
// Diverted are absorbing.
type Aircraft struct {
	// ID is the sequential aircraft identifier, starting at 1.
	ID int
	// AppearanceMinute is the minute the aircraft enters radar range.
	AppearanceMinute int
	// UnimpededArrival is the minute the aircraft would land with no
	// traffic, weather, or closure interference.
	UnimpededArrival int

	speeds SpeedSchedule

	position float64
	velocity float64
	state    State

	everReversed    bool
	landingMinute   int
	diversionMinute int

	// Queue bookkeeping, refreshed every minute by the approach queue.
	gapAheadMin  float64
	leadID       int
	gapBehindMin float64
	tailID       int

	history []Snapshot
}

// NewAircraft creates an in-flight aircraft at the initial distance,
// flying at the maximum permitted speed for that distance. A frame at
// appearance-1 seeds the history so plots start one minute before the
// aircraft is admitted; the unimpeded arrival estimate counts from
// that frame, so an undisturbed aircraft lands with zero delay.
func NewAircraft(id, appearanceMinute int, initialDistanceNM float64, speeds SpeedSchedule) *Aircraft {
	a := &Aircraft{
		ID:               id,
		AppearanceMinute: appearanceMinute,
		UnimpededArrival: appearanceMinute - 1 + speeds.ExpectedMinutesToLand(initialDistanceNM),
		speeds:           speeds,
		position:         initialDistanceNM,
		velocity:         speeds.MaxAt(initialDistanceNM),
		state:            StateInFlight,
		landingMinute:    unset,
		diversionMinute:  unset,
		gapAheadMin:      NoGap,
		leadID:           NoNeighbor,
		gapBehindMin:     NoGap,
		tailID:           NoNeighbor,
	}
	a.record(appearanceMinute - 1)
	return a
}

// Position is the current distance to the runway threshold in NM.
func (a *Aircraft) Position() float64 { return a.position }

// Velocity is the current signed speed in knots; negative while reversing.
func (a *Aircraft) Velocity() float64 { return a.velocity }

// State returns the current lifecycle state.
func (a *Aircraft) State() State { return a.state }

// EverReversed reports whether the aircraft has reversed at least once.
func (a *Aircraft) EverReversed() bool { return a.everReversed }

// History returns the recorded trajectory. Callers must not mutate it.
func (a *Aircraft) History() []Snapshot { return a.history }

// LandingMinute returns the landing minute, if the aircraft landed.
func (a *Aircraft) LandingMinute() (int, bool) {
	return a.landingMinute, a.landingMinute != unset
}

// DiversionMinute returns the diversion minute, if the aircraft diverted.
func (a *Aircraft) DiversionMinute() (int, bool) {
	return a.diversionMinute, a.diversionMinute != unset
}

// DelayMin is the accumulated delay at the given minute relative to the
// unimpeded arrival estimate. Negative before the estimate.
func (a *Aircraft) DelayMin(minute int) int {
	return minute - a.UnimpededArrival
}

// PermittedSpeed returns the velocity band for the current position.
func (a *Aircraft) PermittedSpeed() SpeedBand {
	return a.speeds.Lookup(a.position)
}

// ExpectedMinutesToLand estimates minutes to touchdown from the current
// position at maximum permitted speeds.
func (a *Aircraft) ExpectedMinutesToLand() int {
	return a.speeds.ExpectedMinutesToLand(a.position)
}

// SetGaps stores the queue-derived separation info for this minute so
// it lands in the next recorded frame.
func (a *Aircraft) SetGaps(gapAheadMin float64, leadID int, gapBehindMin float64, tailID int) {
	a.gapAheadMin = gapAheadMin
	a.leadID = leadID
	a.gapBehindMin = gapBehindMin
	a.tailID = tailID
}

// GapAheadMin is the separation gap in minutes to the nearest in-flight
// aircraft ahead, or NoGap when nothing in flight is ahead.
func (a *Aircraft) GapAheadMin() float64 { return a.gapAheadMin }

// Advance applies dt minutes of motion and records a frame. In-flight
// aircraft close on the runway and are clamped at 0 (landing itself is
// decided by the separation policy, since a closure or the landing gap
// can hold an aircraft at the threshold). Reversing aircraft recede at
// their fixed reversal speed. Terminal aircraft do not move and do not
// record further frames.
func (a *Aircraft) Advance(minute int, dt float64) {
	if a.state.Terminal() {
		return
	}
	a.position -= a.velocity / 60.0 * dt
	if a.state == StateInFlight && a.position < 0 {
		a.position = 0
	}
	a.record(minute)
}

// SetVelocity adjusts the approach speed of an in-flight aircraft.
func (a *Aircraft) SetVelocity(kt float64) error {
	if a.state.Terminal() {
		return a.terminalErr("set velocity")
	}
	a.velocity = kt
	return nil
}

// BeginReversal puts the aircraft into marcha atrás at the given
// (positive) reversal speed and latches EverReversed.
func (a *Aircraft) BeginReversal(reversalSpeedKt float64) error {
	if a.state.Terminal() {
		return a.terminalErr("reverse")
	}
	a.state = StateReversing
	a.velocity = -math.Abs(reversalSpeedKt)
	a.everReversed = true
	return nil
}

// Reinsert returns a reversing aircraft to the approach, flying at the
// maximum permitted speed for its current position.
func (a *Aircraft) Reinsert() error {
	if a.state != StateReversing {
		return fmt.Errorf("aircraft %d: reinsert from %s", a.ID, a.state)
	}
	a.state = StateInFlight
	a.velocity = a.speeds.MaxAt(a.position)
	return nil
}

// MarkLanded is the terminal landing transition. It clamps the position
// to the threshold, zeroes the velocity, and records the final frame.
func (a *Aircraft) MarkLanded(minute int) error {
	if a.state.Terminal() {
		return a.terminalErr("land")
	}
	a.state = StateLanded
	a.position = 0
	a.velocity = 0
	a.landingMinute = minute
	a.record(minute)
	return nil
}

// MarkDiverted is the terminal diversion transition.
func (a *Aircraft) MarkDiverted(minute int) error {
	if a.state.Terminal() {
		return a.terminalErr("divert")
	}
	a.state = StateDiverted
	a.velocity = 0
	a.diversionMinute = minute
	a.record(minute)
	return nil
}

// record keeps the history at one frame per minute: a terminal
// transition in the minute Advance already recorded replaces that
// frame rather than appending a second one.
func (a *Aircraft) record(minute int) {
	snap := Snapshot{
		Minute:       minute,
		Position:     a.position,
		Velocity:     a.velocity,
		State:        a.state,
		GapAheadMin:  finiteGap(a.gapAheadMin),
		LeadID:       a.leadID,
		GapBehindMin: finiteGap(a.gapBehindMin),
		TailID:       a.tailID,
	}
	if n := len(a.history); n > 0 && a.history[n-1].Minute == minute {
		a.history[n-1] = snap
		return
	}
	a.history = append(a.history, snap)
}

// finiteGap keeps recorded frames JSON-encodable: an unbounded gap
// (stationary or reversing neighbor) is stored as NoGap.
func finiteGap(gap float64) float64 {
	if math.IsInf(gap, 0) {
		return NoGap
	}
	return gap
}

func (a *Aircraft) terminalErr(op string) error {
	return fmt.Errorf("aircraft %d: cannot %s: %w (%s)", a.ID, op, ErrTerminalState, a.state)
}

func (a *Aircraft) String() string {
	return fmt.Sprintf("aircraft %d: pos=%.1f nm state=%s vel=%.0f kt", a.ID, a.position, a.state, a.velocity)
}
