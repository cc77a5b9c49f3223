package core

import (
	"github.com/runwaylabs/arrival-simulator/model"
)

// DiversionPolicy decides which airborne aircraft must be redirected to
// the alternate airport. Diversion is terminal and irreversible.
type DiversionPolicy struct {
	cfg Config
}

// NewDiversionPolicy builds a policy over the given configuration.
func NewDiversionPolicy(cfg Config) *DiversionPolicy {
	return &DiversionPolicy{cfg: cfg}
}

// Apply evaluates every queued aircraft against the delay and closure
// bounds for this minute and diverts the ones that fail. closure is the
// run's closure window (possibly zero). Diverted aircraft are removed
// from the queue and returned.
func (p *DiversionPolicy) Apply(q *ApproachQueue, minute int, closure model.ClosureWindow) []*model.Aircraft {
	var diverted []*model.Aircraft
	for _, a := range append([]*model.Aircraft(nil), q.All()...) {
		if !p.shouldDivert(a, minute, closure) {
			continue
		}
		if err := a.MarkDiverted(minute); err != nil {
			continue
		}
		q.Remove(a)
		diverted = append(diverted, a)
	}
	return diverted
}

func (p *DiversionPolicy) shouldDivert(a *model.Aircraft, minute int, closure model.ClosureWindow) bool {
	// Accumulated delay past the unimpeded arrival estimate.
	if a.DelayMin(minute) > p.cfg.MaxDelayMin {
		return true
	}

	// A reversing aircraft that recedes past its appearance distance
	// has left the approach for good.
	if a.State() == model.StateReversing && a.Position() > p.cfg.InitialDistanceNM {
		return true
	}

	if a.State() != model.StateInFlight {
		return false
	}
	eta := minute + a.ExpectedMinutesToLand()

	// Landing would fall inside the closure and the earliest
	// post-closure slot already breaches the delay bound.
	if !closure.IsZero() && closure.Covers(eta) {
		if closure.End-a.UnimpededArrival > p.cfg.MaxDelayMin {
			return true
		}
	}

	// Optionally treat the horizon as an airport closing time.
	if p.cfg.DivertPastHorizon && eta > p.cfg.HorizonMin {
		return true
	}
	return false
}
