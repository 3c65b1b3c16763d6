package diag

import (
	"math"
	"sort"

	"github.com/gonum/mathext"
	"github.com/gonum/stat"
)

// splitChains splits every chain into its first and second half,
// dropping the middle draw of odd chains. Splitting exposes trends
// within a chain to the between-chain comparison.
func splitChains(chains [][]float64) [][]float64 {
	split := make([][]float64, 0, 2*len(chains))
	for _, c := range chains {
		h := len(c) / 2
		split = append(split, c[:h], c[len(c)-h:])
	}
	return split
}

// ranks assigns 1-based ranks to the values, averaging ties.
func ranks(xs []float64) []float64 {
	n := len(xs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return xs[idx[i]] < xs[idx[j]]
	})
	r := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			r[idx[k]] = avg
		}
		i = j + 1
	}
	return r
}

// rankNormalize replaces the pooled values by their normal scores,
// z = Phi^-1((rank - 3/8) / (S + 1/4)). The transform makes the
// estimators robust against heavy tails.
func rankNormalize(chains [][]float64) [][]float64 {
	var pooled []float64
	for _, c := range chains {
		pooled = append(pooled, c...)
	}
	s := float64(len(pooled))
	r := ranks(pooled)
	z := make([][]float64, len(chains))
	k := 0
	for i, c := range chains {
		z[i] = make([]float64, len(c))
		for j := range c {
			z[i][j] = mathext.NormalQuantile((r[k] - 0.375) / (s + 0.25))
			k++
		}
	}
	return z
}

// chainStats returns the within-chain variance mean W and the total
// variance estimate varPlus = W*(n-1)/n + var(means).
func chainStats(chains [][]float64) (w, varPlus float64) {
	n := float64(len(chains[0]))
	means := make([]float64, len(chains))
	vars := make([]float64, len(chains))
	for i, c := range chains {
		means[i] = stat.Mean(c, nil)
		vars[i] = stat.Variance(c, nil)
	}
	w = stat.Mean(vars, nil)
	varPlus = w*(n-1)/n + stat.Variance(means, nil)
	return
}

// meanAutocov returns the autocovariance at lag t averaged over
// chains, normalized like the sample variance so that lag zero equals
// the within-chain variance.
func meanAutocov(chains [][]float64, means []float64, t int) float64 {
	sum := 0.0
	for i, c := range chains {
		n := len(c)
		m := means[i]
		acc := 0.0
		for j := 0; j+t < n; j++ {
			acc += (c[j] - m) * (c[j+t] - m)
		}
		sum += acc / float64(n-1)
	}
	return sum / float64(len(chains))
}

// essZ estimates the effective sample size of already split and
// normalized chains using Geyer's initial monotone sequence of
// autocorrelation pairs.
func essZ(chains [][]float64) float64 {
	m := len(chains)
	n := len(chains[0])
	if m < 2 || n < 4 {
		return math.NaN()
	}
	w, varPlus := chainStats(chains)
	if !(varPlus > 0) || math.IsNaN(w) {
		return math.NaN()
	}
	means := make([]float64, m)
	for i, c := range chains {
		means[i] = stat.Mean(c, nil)
	}

	rho := func(t int) float64 {
		return 1 - (w-meanAutocov(chains, means, t))/varPlus
	}

	// rho(0) is one by construction, the first pair enters
	// unconditionally
	pairSum := rho(0) + rho(1)
	prev := pairSum
	for k := 1; 2*k+1 < n; k++ {
		p := rho(2*k) + rho(2*k+1)
		if p <= 0 {
			break
		}
		if p > prev {
			p = prev
		}
		pairSum += p
		prev = p
	}
	tau := -1 + 2*pairSum
	if !(tau > 0) {
		return math.NaN()
	}
	return float64(m*n) / tau
}

// rhatZ computes the potential scale reduction factor of already
// split and normalized chains.
func rhatZ(chains [][]float64) float64 {
	m := len(chains)
	if m < 2 || len(chains[0]) < 2 {
		return math.NaN()
	}
	w, varPlus := chainStats(chains)
	if !(w > 0) {
		return math.NaN()
	}
	return math.Sqrt(varPlus / w)
}
