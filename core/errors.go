package core

import "errors"

var (
	// ErrInvalidConfiguration indicates a configuration that fails
	// fast-validation before a run starts (non-positive rate or
	// horizon, inverted closure window, reinsertion buffer not above
	// the separation minimum, etc.).
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvariantViolation is raised by the consistency checker when
	// queue ordering or state uniqueness is broken. It signals an
	// implementation defect and aborts the run; it is never retried.
	ErrInvariantViolation = errors.New("invariant violation")
)
