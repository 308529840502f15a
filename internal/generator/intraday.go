package generator

import "math"

// intradayCurve is a bounded, strictly positive U-shaped function of the
// time of day: activity is highest near session open and close and
// lowest around midday, reproducing the familiar U-shaped volume profile
// of real markets.
type intradayCurve struct {
	sessionLengthSec float64
	baseline         float64
	amplitude        float64
}

func newIntradayCurve(sessionLengthSec uint32) *intradayCurve {
	return &intradayCurve{
		sessionLengthSec: float64(sessionLengthSec),
		baseline:         0.6,
		amplitude:        1.4,
	}
}

// multiplier returns the activity multiplier for tSec seconds since
// session open, wrapping modulo the session length.
func (c *intradayCurve) multiplier(tSec float64) float64 {
	if c.sessionLengthSec <= 0 {
		return 1.0
	}
	phase := math.Mod(tSec, c.sessionLengthSec) / c.sessionLengthSec // in [0, 1)
	// Distance from the midpoint of the session, in [0, 1]; 1 at the open
	// or close, 0 at midday.
	edgeDistance := math.Abs(2*phase - 1)
	return c.baseline + c.amplitude*edgeDistance*edgeDistance
}
