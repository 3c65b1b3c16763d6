/*

Package diag implements MCMC convergence diagnostics: rank-normalized
split-chain effective sample size and potential scale reduction
(Vehtari et al. 2021), and the cost of sampling in milliseconds per
effective sample.

*/
package diag

import (
	"math"
	"time"

	"bitbucket.org/cstatlab/covadapt/trace"
)

// ESS returns the rank-normalized split-chain effective sample size
// for a single parameter given its per-chain series. The result is
// NaN when the estimator is undefined, for too few draws or constant
// chains.
func ESS(chains [][]float64) float64 {
	if len(chains) == 0 || len(chains[0]) < 4 {
		return math.NaN()
	}
	return essZ(rankNormalize(splitChains(chains)))
}

// RHat returns the rank-normalized split-chain potential scale
// reduction factor for a single parameter. Values close to one
// indicate converged chains.
func RHat(chains [][]float64) float64 {
	if len(chains) == 0 || len(chains[0]) < 4 {
		return math.NaN()
	}
	return rhatZ(rankNormalize(splitChains(chains)))
}

func chainSeries(tr *trace.Trace, p int) [][]float64 {
	chains := make([][]float64, tr.NumChains())
	for c := range chains {
		chains[c] = tr.Chain(c).Series(p, nil)
	}
	return chains
}

// ESSAll returns the effective sample size of every parameter of the
// trace.
func ESSAll(tr *trace.Trace) []float64 {
	ess := make([]float64, tr.Dim())
	for p := range ess {
		ess[p] = ESS(chainSeries(tr, p))
	}
	return ess
}

// RHatAll returns the potential scale reduction factor of every
// parameter of the trace.
func RHatAll(tr *trace.Trace) []float64 {
	rhat := make([]float64, tr.Dim())
	for p := range rhat {
		rhat[p] = RHat(chainSeries(tr, p))
	}
	return rhat
}

// MinESS returns the smallest effective sample size, ignoring
// undefined entries. The slowest mixing parameter bounds the quality
// of the whole run.
func MinESS(ess []float64) float64 {
	min := math.NaN()
	for _, e := range ess {
		if math.IsNaN(e) {
			continue
		}
		if math.IsNaN(min) || e < min {
			min = e
		}
	}
	return min
}

// MaxRHat returns the largest potential scale reduction factor,
// ignoring undefined entries.
func MaxRHat(rhat []float64) float64 {
	max := math.NaN()
	for _, r := range rhat {
		if math.IsNaN(r) {
			continue
		}
		if math.IsNaN(max) || r > max {
			max = r
		}
	}
	return max
}

// MsPerEffSample returns the sampling cost in milliseconds of wall
// time per effective sample.
func MsPerEffSample(elapsed time.Duration, ess float64) float64 {
	if !(ess > 0) {
		return math.NaN()
	}
	return elapsed.Seconds() * 1000 / ess
}
