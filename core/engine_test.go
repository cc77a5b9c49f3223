package core

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/runwaylabs/arrival-simulator/fleet"
	"github.com/runwaylabs/arrival-simulator/model"
)

func runScenario(t *testing.T, cfg Config) *RunResult {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return res
}

func TestSingleAircraftLandsUnimpeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arrivals = []int{0}
	cfg.ArrivalRatePerHour = 0
	cfg.HorizonMin = 60

	res := runScenario(t, cfg)

	if res.Landed != 1 || res.Diverted != 0 || res.AirborneAtEnd != 0 {
		t.Fatalf("landed=%d diverted=%d airborne=%d, want 1/0/0",
			res.Landed, res.Diverted, res.AirborneAtEnd)
	}
	// 100 NM under the default schedule takes 23 minutes counted from
	// the seed frame, so the aircraft admitted at minute 0 touches
	// down at minute 22 with zero delay.
	if !reflect.DeepEqual(res.LandingMinutes, []int{22}) {
		t.Fatalf("landing minutes = %v, want [22]", res.LandingMinutes)
	}
	if delays := res.Delays(); len(delays) != 1 || delays[0] != 0 {
		t.Fatalf("delays = %v, want [0]", delays)
	}
	if res.Reversals != 0 || res.CongestionEvents != 0 {
		t.Fatalf("lone aircraft produced traffic events: %+v", res)
	}
	if len(res.Minutes) != cfg.HorizonMin {
		t.Fatalf("minute series length = %d, want %d", len(res.Minutes), cfg.HorizonMin)
	}
}

func TestCloseFollowerDiverts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arrivals = []int{0, 1}
	cfg.ArrivalRatePerHour = 0
	cfg.HorizonMin = 60

	res := runScenario(t, cfg)

	// One minute of spacing is a 1 min gap: the follower reverses on
	// admission, recedes past the appearance distance, and diverts.
	if res.Landed != 1 || res.Diverted != 1 {
		t.Fatalf("landed=%d diverted=%d, want 1/1", res.Landed, res.Diverted)
	}
	if res.Reversals != 1 || res.CongestionEvents != 1 {
		t.Fatalf("reversals=%d congestion=%d, want 1/1", res.Reversals, res.CongestionEvents)
	}
	if !reflect.DeepEqual(res.LandingMinutes, []int{22}) {
		t.Fatalf("landing minutes = %v, want [22]", res.LandingMinutes)
	}

	follower := res.Aircraft[1]
	if follower.State() != model.StateDiverted || !follower.EverReversed() {
		t.Fatalf("follower state=%s everReversed=%v", follower.State(), follower.EverReversed())
	}
	if m, ok := follower.DiversionMinute(); !ok || m != 3 {
		t.Fatalf("follower diversion minute = %d,%v, want 3", m, ok)
	}
}

func TestWellSpacedPairLandsWithGap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arrivals = []int{0, 5}
	cfg.ArrivalRatePerHour = 0
	cfg.HorizonMin = 60

	res := runScenario(t, cfg)

	if res.Landed != 2 || res.Diverted != 0 || res.Reversals != 0 {
		t.Fatalf("landed=%d diverted=%d reversals=%d, want 2/0/0",
			res.Landed, res.Diverted, res.Reversals)
	}
	// The second aircraft reaches the threshold at minute 27 but the
	// landing gap holds it until minute 32.
	if !reflect.DeepEqual(res.LandingMinutes, []int{22, 32}) {
		t.Fatalf("landing minutes = %v, want [22 32]", res.LandingMinutes)
	}
	if delays := res.Delays(); len(delays) != 2 || delays[0] != 0 || delays[1] != 5 {
		t.Fatalf("delays = %v, want [0 5]", delays)
	}
}

func TestClosureHoldReversalAndReinsertion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arrivals = []int{0, 5}
	cfg.ArrivalRatePerHour = 0
	cfg.Closure = model.ClosureWindow{Start: 0, End: 30}
	cfg.StormMinutes = 0
	cfg.HorizonMin = 60

	res := runScenario(t, cfg)

	// The leader holds at the threshold until the runway reopens at
	// minute 30. The follower runs up behind it, reverses at minute
	// 24, reinserts at minute 28, and lands one gap later.
	if res.Landed != 2 || res.Diverted != 0 {
		t.Fatalf("landed=%d diverted=%d, want 2/0", res.Landed, res.Diverted)
	}
	if !reflect.DeepEqual(res.LandingMinutes, []int{30, 40}) {
		t.Fatalf("landing minutes = %v, want [30 40]", res.LandingMinutes)
	}
	if res.Reversals != 1 || res.Reinsertions != 1 {
		t.Fatalf("reversals=%d reinsertions=%d, want 1/1", res.Reversals, res.Reinsertions)
	}

	follower := res.Aircraft[1]
	if !follower.EverReversed() || follower.State() != model.StateLanded {
		t.Fatalf("follower state=%s everReversed=%v", follower.State(), follower.EverReversed())
	}
}

func TestInfeasibleClosureDivertsEarly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arrivals = []int{0}
	cfg.ArrivalRatePerHour = 0
	cfg.Closure = model.ClosureWindow{Start: 5, End: 60}
	cfg.HorizonMin = 120

	res := runScenario(t, cfg)

	// ETA falls inside the closure and the first post-closure slot
	// carries 38 minutes of delay against a 30 minute bound.
	if res.Landed != 0 || res.Diverted != 1 {
		t.Fatalf("landed=%d diverted=%d, want 0/1", res.Landed, res.Diverted)
	}
	if m, ok := res.Aircraft[0].DiversionMinute(); !ok || m != 0 {
		t.Fatalf("diversion minute = %d,%v, want 0", m, ok)
	}
}

func TestWindAbortsRecoverAtTheThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arrivals = []int{0}
	cfg.ArrivalRatePerHour = 0
	cfg.WindAbortProb = 1 // abort every minute, reinsert immediately
	cfg.HorizonMin = 60

	res := runScenario(t, cfg)

	if res.Landed != 1 || res.Diverted != 0 {
		t.Fatalf("landed=%d diverted=%d, want 1/0", res.Landed, res.Diverted)
	}
	if res.WindAborts == 0 || res.Reinsertions == 0 {
		t.Fatalf("wind aborts=%d reinsertions=%d, want both positive", res.WindAborts, res.Reinsertions)
	}
	if !res.Aircraft[0].EverReversed() {
		t.Fatalf("aircraft should have reversed at least once")
	}
}

func TestRunInvariantsUnderCongestion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ArrivalRatePerHour = 20
	cfg.WindAbortProb = 0.002
	cfg.StormMinutes = 30
	cfg.HorizonMin = 300
	cfg.Seed = 11

	res := runScenario(t, cfg)

	if res.TotalAircraft() == 0 {
		t.Fatalf("expected traffic at twenty arrivals per hour")
	}
	if res.Landed+res.Diverted+res.AirborneAtEnd != res.TotalAircraft() {
		t.Fatalf("aircraft accounting broken: %d+%d+%d != %d",
			res.Landed, res.Diverted, res.AirborneAtEnd, res.TotalAircraft())
	}
	for i := 1; i < len(res.LandingMinutes); i++ {
		if gap := res.LandingMinutes[i] - res.LandingMinutes[i-1]; gap < cfg.LandingGapMin {
			t.Fatalf("landing gap %d below the %d minute floor", gap, cfg.LandingGapMin)
		}
	}
	last := res.Minutes[len(res.Minutes)-1]
	if last.Landed != res.Landed || last.Diverted != res.Diverted {
		t.Fatalf("final minute record %+v disagrees with totals %d/%d",
			last, res.Landed, res.Diverted)
	}
	if len(res.Minutes) != cfg.HorizonMin {
		t.Fatalf("minute series length = %d, want %d", len(res.Minutes), cfg.HorizonMin)
	}

	// No landing may fall inside the closure window.
	for _, m := range res.LandingMinutes {
		if res.Closure.Covers(m) {
			t.Fatalf("landing at minute %d inside closure %v", m, res.Closure)
		}
	}
}

func TestInFlightPairsKeepSeparation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ArrivalRatePerHour = 20
	cfg.WindAbortProb = 0.002
	cfg.StormMinutes = 30
	cfg.HorizonMin = 300
	cfg.Seed = 11

	res := runScenario(t, cfg)

	type obs struct {
		pos, vel float64
		state    model.State
	}
	byMinute := make(map[int]map[int]obs)
	for _, a := range res.Aircraft {
		for _, f := range a.History() {
			if f.Minute < a.AppearanceMinute {
				continue // seed frame, before the aircraft is admitted
			}
			if byMinute[f.Minute] == nil {
				byMinute[f.Minute] = make(map[int]obs)
			}
			byMinute[f.Minute][a.ID] = obs{pos: f.Position, vel: f.Velocity, state: f.State}
		}
	}

	// Any pair of consecutive in-flight aircraft inside the separation
	// minimum must resolve by the next minute: one of the two stops
	// flying, or the spacing is restored. Stacks holding at the
	// threshold wait on the landing gap instead.
	for minute := 0; minute < cfg.HorizonMin-1; minute++ {
		var flying []int
		for id, o := range byMinute[minute] {
			if o.state == model.StateInFlight {
				flying = append(flying, id)
			}
		}
		sort.Slice(flying, func(i, j int) bool {
			a, b := byMinute[minute][flying[i]], byMinute[minute][flying[j]]
			if a.pos != b.pos {
				return a.pos < b.pos
			}
			return flying[i] < flying[j]
		})

		for k := 1; k < len(flying); k++ {
			leadObs := byMinute[minute][flying[k-1]]
			tailObs := byMinute[minute][flying[k]]
			if leadObs.pos <= 0 || leadObs.vel <= 0 {
				continue
			}
			if (tailObs.pos-leadObs.pos)/leadObs.vel*60 >= cfg.SeparationMinMin {
				continue
			}
			nl, lok := byMinute[minute+1][flying[k-1]]
			nt, tok := byMinute[minute+1][flying[k]]
			if !lok || !tok || nl.state != model.StateInFlight || nt.state != model.StateInFlight {
				continue
			}
			if nl.vel > 0 && (nt.pos-nl.pos)/nl.vel*60 < cfg.SeparationMinMin {
				t.Fatalf("aircraft %d and %d stayed in flight inside the separation minimum over minutes %d-%d",
					flying[k-1], flying[k], minute, minute+1)
			}
		}
	}
}

func TestFleetObserverSeesTransitions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arrivals = []int{0, 1}
	cfg.ArrivalRatePerHour = 0
	cfg.HorizonMin = 60

	var events []fleet.Event
	e, err := NewEngine(cfg, WithFleetObserver(func(ev fleet.Event) {
		events = append(events, ev)
	}))
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	counts := map[fleet.EventType]int{}
	for _, ev := range events {
		counts[ev.Type]++
	}
	if counts[fleet.EventLanded] != 1 || counts[fleet.EventDiverted] != 1 || counts[fleet.EventReversed] != 1 {
		t.Fatalf("event counts = %v, want one landing, diversion, and reversal", counts)
	}
	for _, ev := range events {
		if ev.Type == fleet.EventLanded && (ev.AircraftID != 1 || ev.Minute != 22) {
			t.Fatalf("landing event = %+v, want aircraft 1 at minute 22", ev)
		}
		if ev.Type == fleet.EventDiverted && (ev.AircraftID != 2 || ev.Minute != 3) {
			t.Fatalf("diversion event = %+v, want aircraft 2 at minute 3", ev)
		}
	}
}

func TestRunsAreReproducible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ArrivalRatePerHour = 12
	cfg.WindAbortProb = 0.001
	cfg.StormMinutes = 30
	cfg.HorizonMin = 240

	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}

	a, err := e.RunSeeded(context.Background(), 99)
	if err != nil {
		t.Fatalf("first run error: %v", err)
	}
	b, err := e.RunSeeded(context.Background(), 99)
	if err != nil {
		t.Fatalf("second run error: %v", err)
	}

	if !reflect.DeepEqual(a.LandingMinutes, b.LandingMinutes) {
		t.Fatalf("landing minutes diverged: %v vs %v", a.LandingMinutes, b.LandingMinutes)
	}
	if !reflect.DeepEqual(a.Minutes, b.Minutes) {
		t.Fatalf("minute series diverged")
	}
	if a.Closure != b.Closure {
		t.Fatalf("storm placement diverged: %v vs %v", a.Closure, b.Closure)
	}
	if a.TotalAircraft() != b.TotalAircraft() {
		t.Fatalf("fleet size diverged: %d vs %d", a.TotalAircraft(), b.TotalAircraft())
	}
	for i := range a.Aircraft {
		if !reflect.DeepEqual(a.Aircraft[i].History(), b.Aircraft[i].History()) {
			t.Fatalf("aircraft %d history diverged", a.Aircraft[i].ID)
		}
	}

	c, err := e.RunSeeded(context.Background(), 100)
	if err != nil {
		t.Fatalf("third run error: %v", err)
	}
	if reflect.DeepEqual(a.LandingMinutes, c.LandingMinutes) && a.TotalAircraft() == c.TotalAircraft() &&
		reflect.DeepEqual(a.Minutes, c.Minutes) {
		t.Fatalf("different seeds produced identical runs")
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReinsertionMin = 2 // below the separation minimum
	if _, err := NewEngine(cfg); err == nil {
		t.Fatalf("invalid config accepted")
	}
}
