package core

import (
	"math/rand"

	"github.com/runwaylabs/arrival-simulator/model"
)

// GenerateArrivals samples appearance minutes from a homogeneous
// Poisson process at ratePerHour over horizonMin minutes. Continuous
// event times are floored to integer minutes; collisions are shifted
// forward to the next free minute so at most one aircraft appears per
// minute. The result is strictly increasing.
func GenerateArrivals(rng *rand.Rand, ratePerHour float64, horizonMin int) []int {
	if ratePerHour <= 0 || horizonMin <= 0 {
		return nil
	}
	ratePerMin := ratePerHour / 60.0

	var continuous []float64
	t := 0.0
	for {
		t += rng.ExpFloat64() / ratePerMin
		if t >= float64(horizonMin) {
			break
		}
		continuous = append(continuous, t)
	}

	occupied := make(map[int]bool, len(continuous))
	minutes := make([]int, 0, len(continuous))
	for _, ct := range continuous {
		m := int(ct)
		for occupied[m] && m < horizonMin {
			m++
		}
		if m < horizonMin {
			minutes = append(minutes, m)
			occupied[m] = true
		}
	}
	// Shifting never reorders: inputs are increasing and each shift
	// lands on the first free minute after its predecessor.
	return minutes
}

// PlaceStorm draws a closure window of the given length uniformly
// inside the horizon.
func PlaceStorm(rng *rand.Rand, horizonMin, lengthMin int) model.ClosureWindow {
	if lengthMin <= 0 || lengthMin > horizonMin {
		return model.ClosureWindow{}
	}
	start := rng.Intn(horizonMin - lengthMin + 1)
	return model.ClosureWindow{Start: start, End: start + lengthMin}
}
