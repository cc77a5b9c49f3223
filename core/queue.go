package core

import (
	"fmt"
	"math"
	"sort"

	"github.com/runwaylabs/arrival-simulator/model"
)

// positionTolerance is the float tolerance used by the consistency
// checker when comparing in-flight positions.
const positionTolerance = 1e-9

// ApproachQueue is the ordered set of airborne aircraft, closest to the
// runway first. It is a view over aircraft owned by the engine: any
// position update must be followed by Sort before the next separation
// check. Ties are broken by ascending ID, so the earlier aircraft leads.
type ApproachQueue struct {
	aircraft []*model.Aircraft
}

// NewApproachQueue returns an empty queue.
func NewApproachQueue() *ApproachQueue {
	return &ApproachQueue{}
}

// Insert adds an aircraft keeping the order by ascending position.
func (q *ApproachQueue) Insert(a *model.Aircraft) {
	idx := sort.Search(len(q.aircraft), func(i int) bool {
		b := q.aircraft[i]
		if b.Position() != a.Position() {
			return b.Position() > a.Position()
		}
		return b.ID > a.ID
	})
	q.aircraft = append(q.aircraft, nil)
	copy(q.aircraft[idx+1:], q.aircraft[idx:])
	q.aircraft[idx] = a
}

// Remove drops the aircraft from the queue, if present.
func (q *ApproachQueue) Remove(a *model.Aircraft) {
	for i, b := range q.aircraft {
		if b == a {
			q.aircraft = append(q.aircraft[:i], q.aircraft[i+1:]...)
			return
		}
	}
}

// Sort re-establishes the position order after a round of kinematic
// updates.
func (q *ApproachQueue) Sort() {
	sort.SliceStable(q.aircraft, func(i, j int) bool {
		a, b := q.aircraft[i], q.aircraft[j]
		if a.Position() != b.Position() {
			return a.Position() < b.Position()
		}
		return a.ID < b.ID
	})
}

// Len returns the number of queued aircraft.
func (q *ApproachQueue) Len() int { return len(q.aircraft) }

// All returns the queue in order. Callers must not mutate the slice.
func (q *ApproachQueue) All() []*model.Aircraft { return q.aircraft }

// Leader returns the queued aircraft closest to the runway, or nil.
func (q *ApproachQueue) Leader() *model.Aircraft {
	if len(q.aircraft) == 0 {
		return nil
	}
	return q.aircraft[0]
}

// InFlightLeader returns the closest aircraft currently in flight
// (reversing aircraft are not landing candidates), or nil.
func (q *ApproachQueue) InFlightLeader() *model.Aircraft {
	for _, a := range q.aircraft {
		if a.State() == model.StateInFlight {
			return a
		}
	}
	return nil
}

// UpdateGaps recomputes, for every queued aircraft, the lead/tail IDs
// and separation gaps in minutes, measured against the nearest
// in-flight neighbor on each side. Reversing aircraft are skipped: a
// plane backing out of the approach must not shield the in-flight pair
// around it from each other. The gap to the aircraft ahead is the
// distance divided by that lead's speed.
func (q *ApproachQueue) UpdateGaps() {
	for i, a := range q.aircraft {
		gapAhead, leadID := model.NoGap, model.NoNeighbor
		for j := i - 1; j >= 0; j-- {
			lead := q.aircraft[j]
			if lead.State() != model.StateInFlight {
				continue
			}
			leadID = lead.ID
			gapAhead = gapMinutes(a.Position()-lead.Position(), lead.Velocity())
			break
		}
		gapBehind, tailID := model.NoGap, model.NoNeighbor
		for j := i + 1; j < len(q.aircraft); j++ {
			tail := q.aircraft[j]
			if tail.State() != model.StateInFlight {
				continue
			}
			tailID = tail.ID
			gapBehind = gapMinutes(tail.Position()-a.Position(), a.Velocity())
			break
		}
		a.SetGaps(gapAhead, leadID, gapBehind, tailID)
	}
}

// gapMinutes converts a distance gap into minutes at the given speed.
func gapMinutes(distanceNM, speedKt float64) float64 {
	if speedKt <= 0 {
		return math.Inf(1)
	}
	return distanceNM / speedKt * 60.0
}

// DetectInconsistencies is a diagnostic pass over the queue. It returns
// an ErrInvariantViolation-wrapped error when (a) two entries share an
// ID, (b) two in-flight aircraft occupy the same position within
// tolerance, or (c) a terminal aircraft is still queued. A failure is
// an implementation defect and aborts the run.
func (q *ApproachQueue) DetectInconsistencies() error {
	seen := make(map[int]bool, len(q.aircraft))
	for _, a := range q.aircraft {
		if seen[a.ID] {
			return fmt.Errorf("%w: duplicate aircraft %d in queue", ErrInvariantViolation, a.ID)
		}
		seen[a.ID] = true

		if a.State().Terminal() {
			return fmt.Errorf("%w: aircraft %d is %s but still queued", ErrInvariantViolation, a.ID, a.State())
		}
	}
	for i := 1; i < len(q.aircraft); i++ {
		prev, cur := q.aircraft[i-1], q.aircraft[i]
		if cur.Position() < prev.Position() {
			return fmt.Errorf("%w: queue order broken at aircraft %d (%.3f nm after %.3f nm)",
				ErrInvariantViolation, cur.ID, cur.Position(), prev.Position())
		}
		bothInFlight := prev.State() == model.StateInFlight && cur.State() == model.StateInFlight
		coincident := math.Abs(cur.Position()-prev.Position()) < positionTolerance
		if bothInFlight && coincident && prev.Position() > 0 {
			return fmt.Errorf("%w: aircraft %d and %d coincide at %.3f nm with neither reversing",
				ErrInvariantViolation, prev.ID, cur.ID, cur.Position())
		}
	}
	return nil
}
