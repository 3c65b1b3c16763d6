/*

Package mnorm implements a multivariate normal log-density with a
dense covariance, the standard correlated target for mass-matrix
adaptation experiments.

*/
package mnorm

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gonum/blas"
	"github.com/gonum/blas/blas64"
	"github.com/gonum/floats"
	"github.com/gonum/lapack/lapack64"
	"github.com/gonum/matrix/mat64"
)

var log2Pi = math.Log(2 * math.Pi)

// Target is a multivariate normal log-density. It keeps the precision
// matrix, so every evaluation is a single symmetric matrix-vector
// product.
type Target struct {
	mu     []float64
	cov    *mat64.SymDense
	prec   blas64.Symmetric
	logDet float64
	names  []string
}

// NewTarget creates a normal target with the given mean and
// covariance. The covariance must be symmetric positive definite.
func NewTarget(mu []float64, cov *mat64.SymDense) (*Target, error) {
	d := len(mu)
	if d == 0 {
		return nil, fmt.Errorf("empty mean vector")
	}
	if cov.Symmetric() != d {
		return nil, fmt.Errorf("covariance dimension %d does not match mean dimension %d", cov.Symmetric(), d)
	}

	cholData := make([]float64, d*d)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			cholData[i*d+j] = cov.At(i, j)
		}
	}
	chol := blas64.Symmetric{N: d, Stride: d, Uplo: blas.Upper, Data: cholData}
	if _, ok := lapack64.Potrf(chol); !ok {
		return nil, fmt.Errorf("covariance of size %d is not positive definite", d)
	}
	tri := blas64.Triangular{N: d, Stride: d, Data: cholData, Uplo: blas.Upper, Diag: blas.NonUnit}

	// precision columns from pairs of triangular solves,
	// U' U x = e_i
	precData := make([]float64, d*d)
	w := make([]float64, d)
	logDet := 0.0
	for i := 0; i < d; i++ {
		logDet += 2 * math.Log(cholData[i*d+i])
		for j := range w {
			w[j] = 0
		}
		w[i] = 1
		vec := blas64.Vector{Inc: 1, Data: w}
		blas64.Trsv(blas.Trans, tri, vec)
		blas64.Trsv(blas.NoTrans, tri, vec)
		for j := 0; j < d; j++ {
			precData[j*d+i] = w[j]
		}
	}

	muC := make([]float64, d)
	copy(muC, mu)
	covC := mat64.NewSymDense(d, nil)
	covC.CopySym(cov)
	names := make([]string, d)
	for i := range names {
		names[i] = "x" + strconv.Itoa(i)
	}
	return &Target{
		mu:     muC,
		cov:    covC,
		prec:   blas64.Symmetric{N: d, Stride: d, Uplo: blas.Upper, Data: precData},
		logDet: logDet,
		names:  names,
	}, nil
}

// Dim returns the dimensionality of the parameter space.
func (t *Target) Dim() int {
	return len(t.mu)
}

// ParameterName returns the name of parameter i.
func (t *Target) ParameterName(i int) string {
	return t.names[i]
}

// Mean returns a copy of the mean vector.
func (t *Target) Mean() []float64 {
	mu := make([]float64, len(t.mu))
	copy(mu, t.mu)
	return mu
}

// Cov returns the covariance. The caller must not modify it.
func (t *Target) Cov() *mat64.SymDense {
	return t.cov
}

// LogProbGrad returns the log-density at x and stores its gradient in
// grad. Safe for concurrent calls.
func (t *Target) LogProbGrad(x, grad []float64) float64 {
	d := len(t.mu)
	r := make([]float64, d)
	for i := range r {
		r[i] = x[i] - t.mu[i]
	}
	blas64.Symv(1, t.prec,
		blas64.Vector{Inc: 1, Data: r},
		0, blas64.Vector{Inc: 1, Data: grad})
	lnp := -0.5*floats.Dot(r, grad) - 0.5*t.logDet - 0.5*float64(d)*log2Pi
	for i := range grad {
		grad[i] = -grad[i]
	}
	return lnp
}
