package generator

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

const returnWindow = 50

// midProcess evolves the latent mid-price via
//
//	mid_{t+1} = mid_t + mid_t·(μ_t·Δt + σ_t·√Δt·ε) + J_t
//
// where μ_t mixes a momentum term (mean recent fractional return, zero
// before any return is recorded) and a mean-reversion term toward an
// anchor, σ_t is regime-scaled fractional volatility, and J_t is a rare
// regime-scaled signed jump of jumpSizeFrac·mid_t. The mid is clamped to
// remain strictly positive.
type midProcess struct {
	mid    float64
	anchor float64

	baseVolatility float64
	momentumCoeff  float64
	reversionCoeff float64
	jumpSizeFrac   float64

	returns []float64 // ring buffer of recent fractional returns
}

func newMidProcess(initial float64) *midProcess {
	return &midProcess{
		mid:            initial,
		anchor:         initial,
		baseVolatility: 0.02,
		momentumCoeff:  0.4,
		reversionCoeff: 0.15,
		jumpSizeFrac:   0.01,
		returns:        make([]float64, 0, returnWindow),
	}
}

// step advances the process by one tick of length dt (seconds) and
// returns the new mid.
func (p *midProcess) step(dt float64, params RegimeParams, rng *rand.Rand) float64 {
	var momentum float64
	if len(p.returns) > 0 {
		momentum = stat.Mean(p.returns, nil) * p.momentumCoeff
	}
	reversion := (p.anchor - p.mid) / p.mid * p.reversionCoeff
	mu := momentum + reversion

	sigma := p.baseVolatility * params.VolatilityMult
	eps := rng.NormFloat64()

	var jump float64
	if rng.Float64() < params.JumpProb {
		sign := 1.0
		if rng.Float64() < 0.5 {
			sign = -1.0
		}
		jump = sign * p.jumpSizeFrac * p.mid
	}

	next := p.mid + mu*p.mid*dt + sigma*p.mid*math.Sqrt(dt)*eps + jump
	if next <= 0 {
		next = p.mid / 2 // clamp: the process must stay strictly positive
	}

	p.pushReturn((next - p.mid) / p.mid)
	p.mid = next
	return p.mid
}

func (p *midProcess) pushReturn(r float64) {
	if len(p.returns) == returnWindow {
		copy(p.returns, p.returns[1:])
		p.returns = p.returns[:returnWindow-1]
	}
	p.returns = append(p.returns, r)
}

// lastReturn is the most recent fractional return, used by the Momentum
// and MeanReversion agents to decide whether to act.
func (p *midProcess) lastReturn() float64 {
	if len(p.returns) == 0 {
		return 0
	}
	return p.returns[len(p.returns)-1]
}
