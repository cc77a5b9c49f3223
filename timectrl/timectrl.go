package timectrl

// SimClock exposes the current simulation minute. Policies and
// observers depend on this abstraction rather than on the concrete
// controller, which keeps them testable with a fixed clock.
type SimClock interface {
	// Now returns the current simulation minute.
	Now() int
}

// Controller drives the simulation clock minute by minute and notifies
// registered listeners in registration order. The loop is strictly
// sequential and deterministic: there is no wall-clock coupling, no
// goroutine, and no way to suspend a tick.
type Controller struct {
	current   int
	listeners []func(minute int) error
}

// NewController constructs a controller positioned before minute 0.
func NewController() *Controller {
	return &Controller{current: -1}
}

// Now returns the current simulation minute. Implements SimClock.
// It is -1 before the run starts and horizon-1 after it completes.
func (c *Controller) Now() int { return c.current }

// AddListener registers a callback invoked on every minute tick. A
// listener error aborts the run immediately.
func (c *Controller) AddListener(fn func(minute int) error) {
	c.listeners = append(c.listeners, fn)
}

// Run executes minutes 0 .. horizon-1, invoking every listener once
// per minute. It stops and returns the first listener error.
func (c *Controller) Run(horizon int) error {
	for minute := 0; minute < horizon; minute++ {
		c.current = minute
		for _, fn := range c.listeners {
			if err := fn(minute); err != nil {
				return err
			}
		}
	}
	return nil
}
