package sample

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gonum/blas"
	"github.com/gonum/blas/blas64"
	"github.com/gonum/floats"
	"github.com/gonum/lapack/lapack64"
	"github.com/gonum/matrix/mat64"
)

// Potential is the momentum distribution of a Hamiltonian sampler. It
// corresponds to a kinetic energy 0.5 * p' M^-1 p, where the inverse
// mass matrix M^-1 estimates the target covariance.
type Potential interface {
	// Dim returns the dimensionality of momentum vectors.
	Dim() int
	// Sample draws a momentum into p using rnd.
	Sample(rnd *rand.Rand, p []float64)
	// Velocity computes v = M^-1 p. The slices must not overlap.
	Velocity(p, v []float64)
}

// kineticEnergy is 0.5 * p' M^-1 p given a momentum and its velocity.
func kineticEnergy(p, v []float64) float64 {
	return 0.5 * floats.Dot(p, v)
}

// IdentityPotential is the unit mass matrix.
type IdentityPotential struct {
	dim int
}

// NewIdentityPotential creates an identity potential of the given
// dimension.
func NewIdentityPotential(dim int) *IdentityPotential {
	return &IdentityPotential{dim: dim}
}

// Dim returns the dimensionality of momentum vectors.
func (pot *IdentityPotential) Dim() int {
	return pot.dim
}

// Sample draws a standard normal momentum.
func (pot *IdentityPotential) Sample(rnd *rand.Rand, p []float64) {
	for i := range p {
		p[i] = rnd.NormFloat64()
	}
}

// Velocity copies p into v.
func (pot *IdentityPotential) Velocity(p, v []float64) {
	copy(v, p)
}

// DiagPotential is a diagonal mass matrix. The inverse mass diagonal
// holds per-parameter variance estimates.
type DiagPotential struct {
	vars []float64
	sds  []float64
}

// NewDiagPotential creates a diagonal potential from per-parameter
// variances. All variances must be positive and finite.
func NewDiagPotential(vars []float64) (*DiagPotential, error) {
	pot := &DiagPotential{
		vars: make([]float64, len(vars)),
		sds:  make([]float64, len(vars)),
	}
	for i, v := range vars {
		if !isFinite(v) || v <= 0 {
			return nil, fmt.Errorf("variance %d is not positive: %v", i, v)
		}
		pot.vars[i] = v
		pot.sds[i] = math.Sqrt(v)
	}
	return pot, nil
}

// NewDiagPotentialFromCov creates a diagonal potential from the
// diagonal of a dense covariance estimate.
func NewDiagPotentialFromCov(cov *mat64.SymDense) (*DiagPotential, error) {
	n := cov.Symmetric()
	vars := make([]float64, n)
	for i := range vars {
		vars[i] = cov.At(i, i)
	}
	return NewDiagPotential(vars)
}

// Dim returns the dimensionality of momentum vectors.
func (pot *DiagPotential) Dim() int {
	return len(pot.vars)
}

// Sample draws a momentum with independent components of variance
// 1/vars[i].
func (pot *DiagPotential) Sample(rnd *rand.Rand, p []float64) {
	for i := range p {
		p[i] = rnd.NormFloat64() / pot.sds[i]
	}
}

// Velocity computes v[i] = vars[i] * p[i].
func (pot *DiagPotential) Velocity(p, v []float64) {
	for i, x := range p {
		v[i] = pot.vars[i] * x
	}
}

// DensePotential is a dense mass matrix. The inverse mass matrix is a
// full covariance estimate, so momenta are drawn from N(0, C^-1) and
// velocities are C * p.
type DensePotential struct {
	dim  int
	cov  blas64.Symmetric
	chol blas64.Triangular
}

// NewDensePotential creates a dense potential from a covariance
// estimate. The matrix must be symmetric positive definite; a failed
// Cholesky factorization is reported as an error.
func NewDensePotential(cov *mat64.SymDense) (*DensePotential, error) {
	n := cov.Symmetric()
	covData := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			covData[i*n+j] = cov.At(i, j)
		}
	}
	cholData := make([]float64, n*n)
	copy(cholData, covData)
	chol := blas64.Symmetric{N: n, Stride: n, Uplo: blas.Upper, Data: cholData}
	if _, ok := lapack64.Potrf(chol); !ok {
		return nil, fmt.Errorf("covariance estimate of size %d is not positive definite", n)
	}
	return &DensePotential{
		dim: n,
		cov: blas64.Symmetric{N: n, Stride: n, Uplo: blas.Upper, Data: covData},
		chol: blas64.Triangular{
			N:      n,
			Stride: n,
			Data:   cholData,
			Uplo:   blas.Upper,
			Diag:   blas.NonUnit,
		},
	}, nil
}

// Dim returns the dimensionality of momentum vectors.
func (pot *DensePotential) Dim() int {
	return pot.dim
}

// Sample draws a momentum from N(0, C^-1). With C = U' U the draw
// solves U p = z for standard normal z.
func (pot *DensePotential) Sample(rnd *rand.Rand, p []float64) {
	for i := range p {
		p[i] = rnd.NormFloat64()
	}
	blas64.Trsv(blas.NoTrans, pot.chol, blas64.Vector{Inc: 1, Data: p})
}

// Velocity computes v = C * p.
func (pot *DensePotential) Velocity(p, v []float64) {
	blas64.Symv(1, pot.cov,
		blas64.Vector{Inc: 1, Data: p},
		0, blas64.Vector{Inc: 1, Data: v})
}
