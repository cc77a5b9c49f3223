package fleet

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/runwaylabs/arrival-simulator/model"
)

var (
	// ErrAircraftExists indicates a duplicate aircraft ID.
	ErrAircraftExists = errors.New("aircraft already registered")
	// ErrAircraftNotFound indicates a lookup for an unknown aircraft.
	ErrAircraftNotFound = errors.New("aircraft not found")
)

// EventType indicates what kind of transition happened in the fleet.
type EventType int

const (
	EventLanded EventType = iota
	EventDiverted
	EventReversed
	EventReinserted
)

func (t EventType) String() string {
	switch t {
	case EventLanded:
		return "landed"
	case EventDiverted:
		return "diverted"
	case EventReversed:
		return "reversed"
	case EventReinserted:
		return "reinserted"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted to subscribers when an aircraft changes phase.
type Event struct {
	Type       EventType
	AircraftID int
	Minute     int
	// DelayMin is the aircraft's delay at the event minute, relative
	// to its unimpeded arrival estimate.
	DelayMin int
}

// subscriber pairs a callback with a token so unsubscribing stays
// correct regardless of the order subscribers leave.
type subscriber struct {
	id int
	fn func(Event)
}

// Registry is the in-memory store for every aircraft admitted to a
// run, with transition-event subscriptions. Observers (metrics,
// logging) subscribe here so the engine stays free of observer wiring.
type Registry struct {
	mu sync.RWMutex

	aircraft map[int]*model.Aircraft
	subs     []subscriber
	nextSub  int
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{aircraft: make(map[int]*model.Aircraft)}
}

// Add registers a new aircraft. It returns ErrAircraftExists when the
// ID is already taken.
func (r *Registry) Add(a *model.Aircraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.aircraft[a.ID]; exists {
		return fmt.Errorf("%w: id %d", ErrAircraftExists, a.ID)
	}
	r.aircraft[a.ID] = a
	return nil
}

// Get returns the aircraft with the given ID.
func (r *Registry) Get(id int) (*model.Aircraft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.aircraft[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrAircraftNotFound, id)
	}
	return a, nil
}

// List returns all registered aircraft sorted by ID.
func (r *Registry) List() []*model.Aircraft {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*model.Aircraft, 0, len(r.aircraft))
	for _, a := range r.aircraft {
		res = append(res, a)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of registered aircraft.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.aircraft)
}

// Notify emits an event to all subscribers outside the lock.
func (r *Registry) Notify(ev Event) {
	r.mu.RLock()
	subs := append([]subscriber{}, r.subs...)
	r.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}

// Subscribe registers a callback for fleet events. It returns an
// idempotent unsubscribe function.
func (r *Registry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs = append(r.subs, subscriber{id: id, fn: fn})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, s := range r.subs {
			if s.id == id {
				r.subs = append(r.subs[:i], r.subs[i+1:]...)
				return
			}
		}
	}
}
