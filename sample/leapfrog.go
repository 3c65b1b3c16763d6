package sample

import (
	"github.com/gonum/floats"
)

// leapfrog integrates Hamilton's equations for a fixed number of
// steps. x, p, v and grad are updated in place; grad must hold the
// gradient at x on entry. Returns the log-density at the final
// position.
func leapfrog(t Target, pot Potential, x, p, v, grad []float64, eps float64, steps int) (lnp float64) {
	floats.AddScaled(p, 0.5*eps, grad)
	for i := 0; i < steps; i++ {
		pot.Velocity(p, v)
		floats.AddScaled(x, eps, v)
		lnp = t.LogProbGrad(x, grad)
		if i == steps-1 {
			floats.AddScaled(p, 0.5*eps, grad)
		} else {
			floats.AddScaled(p, eps, grad)
		}
	}
	return
}
