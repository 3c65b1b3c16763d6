package mnorm

import (
	"math"
	"math/rand"

	"github.com/gonum/matrix/mat64"
)

// RandomCov generates a random dense covariance with substantial
// correlations, L L' for a random lower-triangular L with positive
// diagonal. Scales and orientations vary wildly between seeds, which
// is exactly what makes such targets hard for a unit metric.
func RandomCov(dim int, rnd *rand.Rand) *mat64.SymDense {
	l := make([][]float64, dim)
	for i := range l {
		l[i] = make([]float64, i+1)
		for j := 0; j < i; j++ {
			l[i][j] = rnd.NormFloat64()
		}
		l[i][i] = 0.1 * math.Exp(rnd.NormFloat64())
	}
	cov := mat64.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			s := 0.0
			for k := 0; k <= i; k++ {
				s += l[i][k] * l[j][k]
			}
			cov.SetSym(i, j, s)
		}
	}
	return cov
}

// Isotropic returns sd^2 times the identity.
func Isotropic(dim int, sd float64) *mat64.SymDense {
	cov := mat64.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		cov.SetSym(i, i, sd*sd)
	}
	return cov
}
