package sample

import (
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat"
	"github.com/op/go-logging"
)

func init() {
	// disable logging for tests
	logging.SetLevel(logging.ERROR, "sample")
}

const tolerance = 1e-9

func approxEqual(a, b, tol float64) bool {
	if a == b {
		return true
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < tol
}

// stdNormal is an isotropic standard normal test density.
type stdNormal struct {
	dim int
}

func (s stdNormal) Dim() int {
	return s.dim
}

func (s stdNormal) ParameterName(i int) string {
	return "x" + strconv.Itoa(i)
}

func (s stdNormal) LogProbGrad(x, grad []float64) (lnp float64) {
	for i, v := range x {
		lnp -= 0.5 * v * v
		grad[i] = -v
	}
	return
}

// shiftNormal is a unit-variance normal density with the given mean.
type shiftNormal struct {
	mu []float64
}

func (s shiftNormal) Dim() int {
	return len(s.mu)
}

func (s shiftNormal) ParameterName(i int) string {
	return "x" + strconv.Itoa(i)
}

func (s shiftNormal) LogProbGrad(x, grad []float64) (lnp float64) {
	for i, v := range x {
		d := v - s.mu[i]
		lnp -= 0.5 * d * d
		grad[i] = -d
	}
	return
}

// steepQuad is a quadratic density with extreme curvature, every
// reasonable step size diverges on it.
type steepQuad struct {
	k float64
}

func (s steepQuad) Dim() int {
	return 1
}

func (s steepQuad) ParameterName(i int) string {
	return "x"
}

func (s steepQuad) LogProbGrad(x, grad []float64) float64 {
	grad[0] = -s.k * x[0]
	return -0.5 * s.k * x[0] * x[0]
}

// nanDensity is undefined everywhere.
type nanDensity struct{}

func (nanDensity) Dim() int {
	return 1
}

func (nanDensity) ParameterName(i int) string {
	return "x"
}

func (nanDensity) LogProbGrad(x, grad []float64) float64 {
	grad[0] = math.NaN()
	return math.NaN()
}

func columnMoments(m *mat64.Dense, j int) (mean, sd float64) {
	col := mat64.Col(nil, j, m)
	return stat.Mean(col, nil), stat.StdDev(col, nil)
}

func TestIdentityPotential(tst *testing.T) {
	pot := NewIdentityPotential(3)
	if pot.Dim() != 3 {
		tst.Error("incorrect dimension")
	}
	p := []float64{1, -2, 3}
	v := make([]float64, 3)
	pot.Velocity(p, v)
	for i := range p {
		if v[i] != p[i] {
			tst.Error("identity velocity must equal momentum")
		}
	}
	if !approxEqual(kineticEnergy(p, v), 7, tolerance) {
		tst.Error("incorrect kinetic energy", kineticEnergy(p, v))
	}
}

func TestDiagPotential(tst *testing.T) {
	pot, err := NewDiagPotential([]float64{4, 0.25})
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	p := []float64{1, 2}
	v := make([]float64, 2)
	pot.Velocity(p, v)
	if !approxEqual(v[0], 4, tolerance) || !approxEqual(v[1], 0.5, tolerance) {
		tst.Error("incorrect velocity", v)
	}

	// momenta have variance 1/vars
	rnd := rand.New(rand.NewSource(1))
	n := 20000
	s0 := make([]float64, n)
	for i := 0; i < n; i++ {
		pot.Sample(rnd, p)
		s0[i] = p[0]
	}
	if sd := stat.StdDev(s0, nil); !approxEqual(sd, 0.5, 0.02) {
		tst.Error("incorrect momentum standard deviation", sd)
	}
}

func TestDiagPotentialInvalid(tst *testing.T) {
	for _, vars := range [][]float64{{1, 0}, {-1}, {math.NaN()}, {math.Inf(1)}} {
		if _, err := NewDiagPotential(vars); err == nil {
			tst.Error("expected error for variances", vars)
		}
	}
}

func TestDensePotentialVelocity(tst *testing.T) {
	cov := mat64.NewSymDense(2, []float64{1, 0.5, 0.5, 1})
	pot, err := NewDensePotential(cov)
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	p := []float64{1, 2}
	v := make([]float64, 2)
	pot.Velocity(p, v)
	if !approxEqual(v[0], 2, tolerance) || !approxEqual(v[1], 2.5, tolerance) {
		tst.Error("incorrect velocity", v)
	}
}

func TestDensePotentialSample(tst *testing.T) {
	if testing.Short() {
		tst.Skip("skipping test in short mode.")
	}
	cov := mat64.NewSymDense(2, []float64{1, 0.5, 0.5, 1})
	pot, err := NewDensePotential(cov)
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	rnd := rand.New(rand.NewSource(1))
	n := 20000
	draws := mat64.NewDense(n, 2, nil)
	p := make([]float64, 2)
	for i := 0; i < n; i++ {
		pot.Sample(rnd, p)
		draws.SetRow(i, p)
	}
	// momenta are N(0, C^-1)
	prec := stat.CovarianceMatrix(nil, draws, nil)
	want := [][]float64{{4. / 3, -2. / 3}, {-2. / 3, 4. / 3}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if !approxEqual(prec.At(i, j), want[i][j], 0.08) {
				tst.Error("incorrect momentum covariance", i, j, prec.At(i, j))
			}
		}
	}
}

func TestDensePotentialNotPD(tst *testing.T) {
	cov := mat64.NewSymDense(2, []float64{1, 2, 2, 1})
	if _, err := NewDensePotential(cov); err == nil {
		tst.Error("expected error for a non positive definite matrix")
	}
}

func TestLeapfrogReversible(tst *testing.T) {
	target := stdNormal{dim: 2}
	pot := NewIdentityPotential(2)
	x := []float64{1, 0.5}
	p := []float64{0.3, -0.2}
	v := make([]float64, 2)
	grad := make([]float64, 2)
	target.LogProbGrad(x, grad)

	leapfrog(target, pot, x, p, v, grad, 0.05, 50)
	p[0], p[1] = -p[0], -p[1]
	leapfrog(target, pot, x, p, v, grad, 0.05, 50)

	if !approxEqual(x[0], 1, 1e-8) || !approxEqual(x[1], 0.5, 1e-8) {
		tst.Error("integrator is not reversible", x)
	}
}

func TestLeapfrogEnergy(tst *testing.T) {
	target := stdNormal{dim: 2}
	pot := NewIdentityPotential(2)
	x := []float64{1, 0.5}
	p := []float64{0.3, -0.2}
	v := make([]float64, 2)
	grad := make([]float64, 2)
	lnp := target.LogProbGrad(x, grad)
	pot.Velocity(p, v)
	h0 := kineticEnergy(p, v) - lnp

	lnp = leapfrog(target, pot, x, p, v, grad, 0.01, 100)
	pot.Velocity(p, v)
	h1 := kineticEnergy(p, v) - lnp

	if !approxEqual(h0, h1, 1e-3) {
		tst.Error("energy drift too large:", h1-h0)
	}
}

func TestDualAveraging(tst *testing.T) {
	// persistent rejection shrinks the step size
	da := newDualAveraging(0.5, 0.9)
	for i := 0; i < 100; i++ {
		da.update(0)
	}
	if da.adapted() >= 0.5 {
		tst.Error("step size did not shrink", da.adapted())
	}

	// persistent acceptance grows it
	da = newDualAveraging(0.5, 0.9)
	for i := 0; i < 100; i++ {
		da.update(1)
	}
	if da.adapted() <= 0.5 {
		tst.Error("step size did not grow", da.adapted())
	}
}

func TestStartPositions(tst *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	start, err := startPositions(nil, 3, 2, rnd)
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	if len(start) != 2 || len(start[0]) != 3 {
		tst.Fatal("incorrect jittered start layout")
	}
	for _, x := range start {
		for _, v := range x {
			if v < -1 || v > 1 {
				tst.Error("jittered start out of range", v)
			}
		}
	}

	if _, err = startPositions([][]float64{{1}}, 1, 2, rnd); err == nil {
		tst.Error("expected chain number mismatch error")
	}
	if _, err = startPositions([][]float64{{1, 2}}, 1, 1, rnd); err == nil {
		tst.Error("expected dimension mismatch error")
	}
	if _, err = startPositions([][]float64{{math.NaN()}}, 1, 1, rnd); err == nil {
		tst.Error("expected non-finite start error")
	}
}
