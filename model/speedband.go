package model

import "fmt"

// SpeedBand is one row of the permitted-speed table: aircraft farther
// than AboveNM from the threshold may fly between MinKt and MaxKt.
type SpeedBand struct {
	AboveNM float64 `json:"above_nm" yaml:"above_nm"`
	MaxKt   float64 `json:"max_kt" yaml:"max_kt"`
	MinKt   float64 `json:"min_kt" yaml:"min_kt"`
}

// SpeedSchedule maps distance-to-runway to a permitted velocity band.
// Bands must be sorted by descending AboveNM and the last band must
// have AboveNM == 0 so every non-negative distance resolves.
type SpeedSchedule []SpeedBand

// DefaultSpeedSchedule is the AEP approach profile: full speed far out,
// progressively slower on final.
func DefaultSpeedSchedule() SpeedSchedule {
	return SpeedSchedule{
		{AboveNM: 100, MaxKt: 500, MinKt: 300},
		{AboveNM: 50, MaxKt: 300, MinKt: 250},
		{AboveNM: 15, MaxKt: 250, MinKt: 200},
		{AboveNM: 5, MaxKt: 200, MinKt: 150},
		{AboveNM: 0, MaxKt: 150, MinKt: 120},
	}
}

// Lookup returns the band governing the given distance. Distances at or
// below a band's AboveNM fall through to the next band.
func (s SpeedSchedule) Lookup(distanceNM float64) SpeedBand {
	for _, b := range s {
		if distanceNM > b.AboveNM {
			return b
		}
	}
	if len(s) == 0 {
		return SpeedBand{}
	}
	return s[len(s)-1]
}

// MaxAt returns the maximum permitted speed at the given distance.
func (s SpeedSchedule) MaxAt(distanceNM float64) float64 {
	return s.Lookup(distanceNM).MaxKt
}

// MinAt returns the minimum permitted speed at the given distance.
func (s SpeedSchedule) MinAt(distanceNM float64) float64 {
	return s.Lookup(distanceNM).MinKt
}

// Validate checks that the schedule is non-empty, sorted by descending
// AboveNM, ends at zero, and has sane band limits.
func (s SpeedSchedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("speed schedule is empty")
	}
	prev := s[0].AboveNM + 1
	for i, b := range s {
		if b.AboveNM < 0 {
			return fmt.Errorf("band %d: negative threshold %g", i, b.AboveNM)
		}
		if b.AboveNM >= prev {
			return fmt.Errorf("band %d: thresholds not strictly descending", i)
		}
		if b.MaxKt <= 0 || b.MinKt <= 0 || b.MinKt > b.MaxKt {
			return fmt.Errorf("band %d: invalid speed range [%g, %g]", i, b.MinKt, b.MaxKt)
		}
		prev = b.AboveNM
	}
	if s[len(s)-1].AboveNM != 0 {
		return fmt.Errorf("last band must cover distances down to 0, got %g", s[len(s)-1].AboveNM)
	}
	return nil
}

// ExpectedMinutesToLand integrates minute-sized steps at each band's
// maximum speed and returns how many minutes an unimpeded aircraft
// needs to cover distanceNM. Used by the diversion policy to test slot
// feasibility; the bound guards a degenerate schedule.
func (s SpeedSchedule) ExpectedMinutesToLand(distanceNM float64) int {
	const maxSteps = 100000
	minutes := 0
	d := distanceNM
	for d > 0 && minutes < maxSteps {
		v := s.MaxAt(d)
		if v <= 0 {
			return maxSteps
		}
		d -= v / 60.0
		minutes++
	}
	return minutes
}
