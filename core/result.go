package core

import (
	"github.com/runwaylabs/arrival-simulator/model"
)

// MinuteRecord is the driver's per-minute snapshot of state counts.
type MinuteRecord struct {
	Minute    int `json:"minute" msgpack:"minute"`
	InFlight  int `json:"in_flight" msgpack:"in_flight"`
	Reversing int `json:"reversing" msgpack:"reversing"`
	Landed    int `json:"landed" msgpack:"landed"`
	Diverted  int `json:"diverted" msgpack:"diverted"`
}

// RunResult is the complete record of one simulation run: terminal
// counts, event tallies, the landing sequence, the per-minute state
// series, and every aircraft with its full history. Aircraft still
// airborne at the horizon keep their state and are reported in
// AirborneAtEnd; they count toward neither landings nor diversions.
type RunResult struct {
	Config  Config
	Closure model.ClosureWindow

	Aircraft       []*model.Aircraft
	LandingMinutes []int

	Landed        int
	Diverted      int
	AirborneAtEnd int

	CongestionEvents int
	Reversals        int
	Reinsertions     int
	WindAborts       int

	Minutes []MinuteRecord
}

// Delays returns the landing delay in minutes, relative to the
// unimpeded arrival estimate, for every landed aircraft in ID order.
func (r *RunResult) Delays() []int {
	var delays []int
	for _, a := range r.Aircraft {
		if m, ok := a.LandingMinute(); ok {
			delays = append(delays, a.DelayMin(m))
		}
	}
	return delays
}

// TotalAircraft is the number of aircraft admitted during the run.
func (r *RunResult) TotalAircraft() int {
	return len(r.Aircraft)
}
