// Package report reduces simulation run records into the aggregate
// statistics the study cares about: average delay, diversion
// probability, and congestion frequency. It is plain arithmetic over
// core.RunResult and never reaches into engine internals.
package report

import (
	"github.com/runwaylabs/arrival-simulator/core"
)

// Summary is the reduced view of one or more runs. Aircraft still
// airborne at the horizon are excluded from the landed/diverted
// denominators and reported in AirborneAtEnd.
type Summary struct {
	Runs          int `json:"runs"`
	TotalAircraft int `json:"total_aircraft"`
	Landed        int `json:"landed"`
	Diverted      int `json:"diverted"`
	AirborneAtEnd int `json:"airborne_at_end"`

	Reversals    int `json:"reversals"`
	Reinsertions int `json:"reinsertions"`
	WindAborts   int `json:"wind_aborts"`

	// AverageDelayMin averages landing delay over landed aircraft.
	AverageDelayMin float64 `json:"average_delay_min"`
	// DiversionProbability is diversions over resolved aircraft
	// (landed + diverted).
	DiversionProbability float64 `json:"diversion_probability"`
	// CongestionFrequency is congestion events per simulated minute.
	CongestionFrequency float64 `json:"congestion_frequency"`
	// MeanLandingGapMin averages the interval between consecutive
	// landings inside each run.
	MeanLandingGapMin float64 `json:"mean_landing_gap_min"`
	// MinLandingGapMin is the tightest such interval observed; 0 when
	// fewer than two landings happened.
	MinLandingGapMin int `json:"min_landing_gap_min"`
}

// Reduce computes the summary of a single run.
func Reduce(res *core.RunResult) Summary {
	return Aggregate([]*core.RunResult{res})
}

// Aggregate reduces a set of replications into one summary. Landing
// gaps are measured within each run only; gaps never span runs.
func Aggregate(results []*core.RunResult) Summary {
	var s Summary
	s.Runs = len(results)

	delaySum, delayCount := 0, 0
	gapSum, gapCount := 0, 0
	minutes := 0
	congestion := 0
	minGap := 0

	for _, res := range results {
		if res == nil {
			continue
		}
		s.TotalAircraft += res.TotalAircraft()
		s.Landed += res.Landed
		s.Diverted += res.Diverted
		s.AirborneAtEnd += res.AirborneAtEnd
		s.Reversals += res.Reversals
		s.Reinsertions += res.Reinsertions
		s.WindAborts += res.WindAborts
		congestion += res.CongestionEvents
		minutes += len(res.Minutes)

		for _, d := range res.Delays() {
			delaySum += d
			delayCount++
		}
		for i := 1; i < len(res.LandingMinutes); i++ {
			gap := res.LandingMinutes[i] - res.LandingMinutes[i-1]
			gapSum += gap
			gapCount++
			if minGap == 0 || gap < minGap {
				minGap = gap
			}
		}
	}

	if delayCount > 0 {
		s.AverageDelayMin = float64(delaySum) / float64(delayCount)
	}
	if resolved := s.Landed + s.Diverted; resolved > 0 {
		s.DiversionProbability = float64(s.Diverted) / float64(resolved)
	}
	if minutes > 0 {
		s.CongestionFrequency = float64(congestion) / float64(minutes)
	}
	if gapCount > 0 {
		s.MeanLandingGapMin = float64(gapSum) / float64(gapCount)
	}
	s.MinLandingGapMin = minGap
	return s
}
