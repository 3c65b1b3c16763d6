package sample

import (
	"math"
)

// dualAveraging tunes the integrator step size towards a target
// acceptance rate (Hoffman & Gelman 2014, algorithm 5).
type dualAveraging struct {
	mu     float64
	gamma  float64
	t0     float64
	kappa  float64
	target float64

	logEps    float64
	logEpsBar float64
	hBar      float64
	t         int
}

func newDualAveraging(eps0, target float64) *dualAveraging {
	return &dualAveraging{
		mu:        math.Log(10 * eps0),
		gamma:     0.05,
		t0:        10,
		kappa:     0.75,
		target:    target,
		logEps:    math.Log(eps0),
		logEpsBar: math.Log(eps0),
	}
}

// update absorbs the acceptance probability of the last transition and
// returns the step size for the next one.
func (da *dualAveraging) update(alpha float64) float64 {
	da.t++
	frac := 1 / (float64(da.t) + da.t0)
	da.hBar = (1-frac)*da.hBar + frac*(da.target-alpha)
	da.logEps = da.mu - da.hBar*math.Sqrt(float64(da.t))/da.gamma
	w := math.Pow(float64(da.t), -da.kappa)
	da.logEpsBar = w*da.logEps + (1-w)*da.logEpsBar
	return math.Exp(da.logEps)
}

// adapted returns the averaged step size to freeze after tuning.
func (da *dualAveraging) adapted() float64 {
	return math.Exp(da.logEpsBar)
}
