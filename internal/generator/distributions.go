package generator

import (
	"math"
	"math/rand"
)

// poissonDraw returns a Poisson(lambda)-distributed integer using Knuth's
// product-of-uniforms method, driven by rng rather than a package-level
// source so every draw stays reproducible from the generator's own seed.
func poissonDraw(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= l {
			return k - 1
		}
	}
}

// exponentialDraw returns an Exponential(rate)-distributed value via
// inverse-transform sampling.
func exponentialDraw(rng *rand.Rand, rate float64) float64 {
	u := 1 - rng.Float64() // (0, 1], avoids log(0)
	return -math.Log(u) / rate
}

// lognormalDraw returns a LogNormal(mu, sigma)-distributed value: the
// exponential of a Normal(mu, sigma) draw.
func lognormalDraw(rng *rand.Rand, mu, sigma float64) float64 {
	return math.Exp(mu + sigma*rng.NormFloat64())
}
