package model

import "fmt"

// State is the lifecycle phase of an aircraft on approach.
type State int

const (
	// StateInFlight means the aircraft is approaching the runway.
	StateInFlight State = iota
	// StateReversing means the aircraft is flying away from the runway
	// ("marcha atrás") after a separation violation or wind abort.
	StateReversing
	// StateLanded is terminal: the aircraft touched down.
	StateLanded
	// StateDiverted is terminal: the aircraft was sent to the alternate.
	StateDiverted
)

// Terminal reports whether the state is absorbing. Once an aircraft is
// Landed or Diverted it never changes state or position again.
func (s State) Terminal() bool {
	return s == StateLanded || s == StateDiverted
}

func (s State) String() string {
	switch s {
	case StateInFlight:
		return "in_flight"
	case StateReversing:
		return "reversing"
	case StateLanded:
		return "landed"
	case StateDiverted:
		return "diverted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText makes states readable in JSON/YAML exports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the textual form produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "in_flight":
		*s = StateInFlight
	case "reversing":
		*s = StateReversing
	case "landed":
		*s = StateLanded
	case "diverted":
		*s = StateDiverted
	default:
		return fmt.Errorf("unknown aircraft state %q", string(b))
	}
	return nil
}
