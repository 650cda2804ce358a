package generator

import (
	"math"
	"math/rand"
)

// defaultGroupSizeWeights is the order-batch size mix observed on course:
// most parties have one or two players ordering in a given pass, a full
// foursome ordering together is rare.
var defaultGroupSizeWeights = []float64{0.40, 0.45, 0.10, 0.05}

// sampleExpMinutes draws an exponential inter-arrival gap in minutes for the
// given arrivals-per-minute rate.
func sampleExpMinutes(rng *rand.Rand, ratePerMinute float64) float64 {
	if ratePerMinute <= 0 {
		return math.Inf(1)
	}
	return rng.ExpFloat64() / ratePerMinute
}

// sampleGroupSize draws a party size 1..len(weights) from the configured
// weight table.
func sampleGroupSize(rng *rand.Rand, weights []float64) int {
	if len(weights) == 0 {
		weights = defaultGroupSizeWeights
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 1
	}
	u := rng.Float64() * total
	for i, w := range weights {
		u -= w
		if u < 0 {
			return i + 1
		}
	}
	return len(weights)
}

// sampleOrderValue draws a per-order ticket value from a clamped normal
// distribution.
func sampleOrderValue(rng *rand.Rand, mean, std, min, max float64) float64 {
	// Box-Muller transform for normal distribution
	u1 := rng.Float64()
	u2 := rng.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

	value := mean + z*std

	// clamp to allowed range
	return math.Max(min, math.Min(max, value))
}

// samplePoisson draws a Poisson count by Knuth's method. Means here stay
// small (orders per round), so the multiplication loop is fine.
func samplePoisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}
