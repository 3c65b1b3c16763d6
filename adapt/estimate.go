package adapt

import (
	"fmt"

	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat"

	"bitbucket.org/cstatlab/covadapt/trace"
)

// Covariance computes the sample covariance of all draws in the
// trace, pooled across chains. At least two draws are required.
func Covariance(tr *trace.Trace) (*mat64.SymDense, error) {
	n := tr.TotalDraws()
	if n < 2 {
		return nil, fmt.Errorf("covariance estimation needs at least 2 draws, got %d", n)
	}
	return stat.CovarianceMatrix(nil, tr.Flatten(nil), nil), nil
}

// Regularize shrinks a covariance estimate from n draws towards a
// scaled identity:
//
//	C' = n/(n+w) * C + w/(n+w) * v * I
//
// where w is the regularization weight and v the prior variance. This
// keeps early estimates from tiny windows positive definite. A weight
// of zero leaves the estimate untouched. The matrix is modified in
// place and returned.
func Regularize(cov *mat64.SymDense, n, weight int, variance float64) *mat64.SymDense {
	if weight <= 0 {
		return cov
	}
	d := cov.Symmetric()
	shrink := float64(n) / float64(n+weight)
	add := variance * float64(weight) / float64(n+weight)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			v := cov.At(i, j) * shrink
			if i == j {
				v += add
			}
			cov.SetSym(i, j, v)
		}
	}
	return cov
}
