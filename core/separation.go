package core

import (
	"math"

	"github.com/runwaylabs/arrival-simulator/model"
)

// SeparationOutcome reports what one policy pass did.
type SeparationOutcome struct {
	// CongestionEvents counts aircraft squeezed by traffic ahead this
	// minute: ladder slowdowns when the speed ladder is enabled,
	// otherwise forced reversals.
	CongestionEvents int
	// Reversals lists aircraft that entered marcha atrás this minute.
	Reversals []*model.Aircraft
	// Reinsertions lists reversing aircraft that rejoined the approach.
	Reinsertions []*model.Aircraft
	// Landed is the aircraft that touched down this minute, if any.
	Landed *model.Aircraft
}

// SeparationPolicy enforces spacing on the approach queue: reinsertion
// of reversing aircraft, gap-violation handling for in-flight aircraft,
// and the single-landing-per-minute rule with the minimum landing gap.
type SeparationPolicy struct {
	cfg Config
}

// NewSeparationPolicy builds a policy over the given configuration.
func NewSeparationPolicy(cfg Config) *SeparationPolicy {
	return &SeparationPolicy{cfg: cfg}
}

// Apply runs one minute of separation enforcement. The queue must be
// sorted; gaps are refreshed here. minute is the current simulation
// minute, lastLanding the minute of the previous confirmed landing (or
// a large negative value), and closed whether the runway closure covers
// this minute.
//
// Evaluation order is fixed for determinism: reinsertions over the
// queue snapshot first, then gap enforcement front to back, then the
// landing attempt.
func (p *SeparationPolicy) Apply(q *ApproachQueue, minute, lastLanding int, closed bool) SeparationOutcome {
	q.Sort()
	q.UpdateGaps()

	var out SeparationOutcome

	// Index-based snapshot: reversal/reinsertion decisions below must
	// not see each other's effects within the same minute.
	snapshot := append([]*model.Aircraft(nil), q.All()...)

	for _, a := range snapshot {
		if a.State() == model.StateReversing {
			p.tryReinsert(a, snapshot, &out)
		}
	}
	for _, a := range snapshot {
		if a.State() != model.StateInFlight {
			continue
		}
		p.enforceGap(a, &out)
	}

	q.Sort()
	q.UpdateGaps()

	if landed := p.attemptLanding(q, minute, lastLanding, closed); landed != nil {
		out.Landed = landed
	}
	return out
}

// tryReinsert returns a reversing aircraft to the approach once its
// distance to the nearest in-flight aircraft, measured in minutes at
// the band maximum for its position, reaches the reinsertion buffer.
func (p *SeparationPolicy) tryReinsert(a *model.Aircraft, snapshot []*model.Aircraft, out *SeparationOutcome) {
	nearest := math.Inf(1)
	for _, b := range snapshot {
		if b == a || b.State() != model.StateInFlight {
			continue
		}
		if d := math.Abs(b.Position() - a.Position()); d < nearest {
			nearest = d
		}
	}
	speed := p.cfg.SpeedBands.MaxAt(a.Position())
	if gapMinutes(nearest, speed) < p.cfg.ReinsertionMin {
		return
	}
	if err := a.Reinsert(); err == nil {
		out.Reinsertions = append(out.Reinsertions, a)
	}
}

// enforceGap applies the spacing rule to one in-flight aircraft. The
// gap is measured against the nearest in-flight predecessor; with
// nothing in flight ahead the aircraft flies the band maximum. A
// trailer below the separation minimum reverses, or sheds speed first
// when the ladder is enabled. A trailer already holding at the
// threshold is exempt: the landing gap sequences the stack there.
func (p *SeparationPolicy) enforceGap(a *model.Aircraft, out *SeparationOutcome) {
	band := a.PermittedSpeed()
	gap := a.GapAheadMin()

	if gap == model.NoGap || math.IsInf(gap, 1) {
		a.SetVelocity(band.MaxKt)
		return
	}
	if a.Position() <= 0 {
		return
	}

	switch {
	case gap < p.cfg.SeparationMinMin:
		if p.cfg.SpeedLadder {
			reduced := a.Velocity() - p.cfg.SpeedStepKt
			if reduced >= band.MinKt {
				a.SetVelocity(reduced)
				out.CongestionEvents++
				return
			}
		}
		if err := a.BeginReversal(p.cfg.ReversalSpeedKt); err == nil {
			out.Reversals = append(out.Reversals, a)
			if !p.cfg.SpeedLadder {
				out.CongestionEvents++
			}
		}
	case gap >= p.cfg.SpeedBufferMin:
		a.SetVelocity(band.MaxKt)
	default:
		// Between the minimum and the buffer: hold speed, but never
		// above the band maximum for the current tramo.
		if a.Velocity() > band.MaxKt {
			a.SetVelocity(band.MaxKt)
		}
	}
}

// attemptLanding lands the in-flight queue leader when it has reached
// the threshold, the runway is open, and the landing gap since the
// previous landing is satisfied. Only the strictly closest aircraft may
// land in a given minute; anyone else at the threshold is held.
func (p *SeparationPolicy) attemptLanding(q *ApproachQueue, minute, lastLanding int, closed bool) *model.Aircraft {
	if closed {
		return nil
	}
	leader := q.InFlightLeader()
	if leader == nil || leader.Position() > 0 {
		return nil
	}
	if q.Leader() != leader {
		// A reversing aircraft ahead of the in-flight leader can only
		// happen at the threshold itself; hold the landing.
		return nil
	}
	if minute-lastLanding < p.cfg.LandingGapMin {
		return nil
	}
	if err := leader.MarkLanded(minute); err != nil {
		return nil
	}
	q.Remove(leader)
	return leader
}
