package generator

import "math/rand"

// regimeMachine advances the CALM/NORMAL/STRESS state machine one tick at a
// time using a fixed row-stochastic transition matrix. Expected dwell
// times follow from the matrix's diagonal: the default matrix in
// config.Default gives
// CALM/NORMAL dwell times in the hundreds of ticks and STRESS dwell
// times in the tens.
type regimeMachine struct {
	current Regime
	matrix  [3][3]float64
	params  map[Regime]RegimeParams
}

func newRegimeMachine(matrix [3][3]float64) *regimeMachine {
	return &regimeMachine{
		current: Normal,
		matrix:  matrix,
		params:  defaultRegimeParams(),
	}
}

// step draws the next regime from the current row of the transition
// matrix and returns it (possibly unchanged).
func (m *regimeMachine) step(rng *rand.Rand) Regime {
	row := m.matrix[m.current]
	u := rng.Float64()
	var cumulative float64
	next := Regime(len(row) - 1) // falls through to the last state on rounding
	for i, p := range row {
		cumulative += p
		if u < cumulative {
			next = Regime(i)
			break
		}
	}
	m.current = next
	return m.current
}

func (m *regimeMachine) currentParams() RegimeParams {
	return m.params[m.current]
}
