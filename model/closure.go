package model

import "fmt"

// ClosureWindow is a half-open interval [Start, End) of minutes during
// which the runway accepts no landings.
type ClosureWindow struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Covers reports whether the given minute falls inside the window.
func (w ClosureWindow) Covers(minute int) bool {
	return minute >= w.Start && minute < w.End
}

// IsZero reports whether the window is unset.
func (w ClosureWindow) IsZero() bool {
	return w.Start == 0 && w.End == 0
}

// Validate rejects inverted or negative windows.
func (w ClosureWindow) Validate() error {
	if w.IsZero() {
		return nil
	}
	if w.Start < 0 {
		return fmt.Errorf("closure window starts at negative minute %d", w.Start)
	}
	if w.End <= w.Start {
		return fmt.Errorf("closure window [%d, %d) is inverted or empty", w.Start, w.End)
	}
	return nil
}

func (w ClosureWindow) String() string {
	if w.IsZero() {
		return "none"
	}
	return fmt.Sprintf("[%d, %d)", w.Start, w.End)
}
