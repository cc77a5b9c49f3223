package model

// Snapshot is one minute-level frame of an aircraft's trajectory.
// GapAheadMin/GapBehindMin are separation gaps in minutes relative to
// the adjacent aircraft in the approach queue; NoNeighbor marks the
// absence of a lead or tail, and gaps are negative when unknown.
type Snapshot struct {
	Minute   int     `json:"minute" msgpack:"minute"`
	Position float64 `json:"position_nm" msgpack:"position_nm"`
	Velocity float64 `json:"velocity_kt" msgpack:"velocity_kt"`
	State    State   `json:"state" msgpack:"state"`

	GapAheadMin  float64 `json:"gap_ahead_min" msgpack:"gap_ahead_min"`
	LeadID       int     `json:"lead_id" msgpack:"lead_id"`
	GapBehindMin float64 `json:"gap_behind_min" msgpack:"gap_behind_min"`
	TailID       int     `json:"tail_id" msgpack:"tail_id"`
}

// NoNeighbor is the LeadID/TailID value recorded when the aircraft has
// no queue neighbor on that side. Aircraft IDs start at 1.
const NoNeighbor = 0

// NoGap is recorded when a gap is undefined (no neighbor on that side).
const NoGap = -1.0
