/*

Package sample implements Markov chain Monte Carlo samplers for
differentiable log-densities.

Two engines are provided. HMC is a Hamiltonian Monte Carlo sampler
with a static integration path, dual-averaging step-size tuning and a
pluggable mass-matrix potential. Walk is a random-walk
Metropolis-Hastings sampler with a multivariate normal proposal, kept
mainly as a cheap reference engine.

Every engine runs a fixed number of chains in parallel and returns the
draws as a *trace.Trace. Randomness is explicit: engines derive one
generator per chain from the seed they were constructed with and never
touch the global source.

*/
package sample

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/op/go-logging"

	"bitbucket.org/cstatlab/covadapt/trace"
)

var log = logging.MustGetLogger("sample")

// Target is a differentiable log-density to sample from.
type Target interface {
	// Dim returns the dimensionality of the parameter space.
	Dim() int
	// ParameterName returns the name of parameter i.
	ParameterName(i int) string
	// LogProbGrad returns the unnormalized log-density at x and
	// stores its gradient in grad. Implementations must be safe for
	// concurrent calls.
	LogProbGrad(x, grad []float64) float64
}

func parameterNames(t Target) []string {
	names := make([]string, t.Dim())
	for i := range names {
		names[i] = t.ParameterName(i)
	}
	return names
}

// startPositions validates user supplied start positions or, when
// start is nil, draws one position per chain uniformly from
// [-1, 1]^dim.
func startPositions(start [][]float64, dim, chains int, rnd *rand.Rand) ([][]float64, error) {
	if start == nil {
		start = make([][]float64, chains)
		for c := range start {
			x := make([]float64, dim)
			for i := range x {
				x[i] = 2*rnd.Float64() - 1
			}
			start[c] = x
		}
		return start, nil
	}
	if len(start) != chains {
		return nil, fmt.Errorf("got %d start positions for %d chains", len(start), chains)
	}
	for c, x := range start {
		if len(x) != dim {
			return nil, fmt.Errorf("start position of chain %d has dimension %d, want %d", c, len(x), dim)
		}
		for _, v := range x {
			if !isFinite(v) {
				return nil, fmt.Errorf("start position of chain %d is not finite", c)
			}
		}
	}
	return start, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func newTrace(t Target, chains int) *trace.Trace {
	return trace.New(parameterNames(t), chains)
}
