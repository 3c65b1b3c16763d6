package sample

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"bitbucket.org/cstatlab/covadapt/trace"
)

// Settings hold the tunable parameters of the HMC sampler.
type Settings struct {
	// StepSize is the initial leapfrog step size, tuned by dual
	// averaging during the tuning phase.
	StepSize float64
	// PathLength is the total integration time of one trajectory. The
	// number of leapfrog steps is drawn uniformly between one and
	// PathLength / step size.
	PathLength float64
	// TargetAccept is the acceptance rate targeted by step-size
	// tuning.
	TargetAccept float64
	// MaxEnergyError marks transitions with a larger energy error as
	// divergent; divergent transitions are rejected and counted.
	MaxEnergyError float64
	// MaxSteps caps the number of leapfrog steps per trajectory.
	MaxSteps int
	// Chains is the number of independent chains.
	Chains int
}

// NewSettings creates sampler settings with default values.
func NewSettings() (s *Settings) {
	return &Settings{
		StepSize:       0.1,
		PathLength:     2,
		TargetAccept:   0.9,
		MaxEnergyError: 1000,
		MaxSteps:       1024,
		Chains:         4,
	}
}

func (s *Settings) check(dim int) error {
	switch {
	case s.StepSize <= 0:
		return fmt.Errorf("step size must be positive, got %v", s.StepSize)
	case s.PathLength <= 0:
		return fmt.Errorf("path length must be positive, got %v", s.PathLength)
	case s.TargetAccept <= 0 || s.TargetAccept >= 1:
		return fmt.Errorf("target acceptance rate must be in (0, 1), got %v", s.TargetAccept)
	case s.MaxEnergyError <= 0:
		return fmt.Errorf("maximum energy error must be positive, got %v", s.MaxEnergyError)
	case s.MaxSteps < 1:
		return fmt.Errorf("maximum number of steps must be at least 1, got %d", s.MaxSteps)
	case s.Chains < 1:
		return fmt.Errorf("number of chains must be at least 1, got %d", s.Chains)
	case dim < 1:
		return fmt.Errorf("dimension must be at least 1, got %d", dim)
	}
	return nil
}

// HMC is a Hamiltonian Monte Carlo sampler with a static integration
// path and a fixed mass-matrix potential. Changing the mass matrix
// means creating a new sampler.
type HMC struct {
	target Target
	pot    Potential
	s      Settings
	seed   int64
}

// NewHMC creates an HMC sampler for the target using the given
// potential. A nil potential defaults to the identity, nil settings to
// NewSettings(). The seed determines all randomness; chain c uses a
// generator seeded with seed+1+c.
func NewHMC(t Target, pot Potential, s *Settings, seed int64) (*HMC, error) {
	if s == nil {
		s = NewSettings()
	}
	if err := s.check(t.Dim()); err != nil {
		return nil, err
	}
	if pot == nil {
		pot = NewIdentityPotential(t.Dim())
	}
	if pot.Dim() != t.Dim() {
		return nil, fmt.Errorf("potential dimension %d does not match target dimension %d", pot.Dim(), t.Dim())
	}
	return &HMC{target: t, pot: pot, s: *s, seed: seed}, nil
}

// Run advances all chains by tune adaptation transitions followed by
// draws retained transitions. The step size adapts during the first
// tune transitions and is frozen afterwards. When keepTuned is true
// the tuning draws are retained in the trace as well. A nil start
// jitters initial positions uniformly in [-1, 1]^dim.
func (h *HMC) Run(start [][]float64, tune, draws int, keepTuned bool) (*trace.Trace, error) {
	if tune < 0 || draws < 0 || tune+draws == 0 {
		return nil, fmt.Errorf("nothing to sample: tune=%d, draws=%d", tune, draws)
	}
	start, err := startPositions(start, h.target.Dim(), h.s.Chains, rand.New(rand.NewSource(h.seed)))
	if err != nil {
		return nil, err
	}

	tr := newTrace(h.target, h.s.Chains)
	if keepTuned {
		tr.Tuned = tune
	}
	errs := make([]error, h.s.Chains)
	var wg sync.WaitGroup
	for c := 0; c < h.s.Chains; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			errs[c] = h.runChain(c, start[c], tune, draws, keepTuned, tr.Chain(c))
		}(c)
	}
	wg.Wait()
	if err := firstError(errs); err != nil {
		return nil, err
	}

	for c := 0; c < h.s.Chains; c++ {
		ch := tr.Chain(c)
		log.Debugf("chain %d: acceptance rate %.3f, step size %.4g, %d divergent",
			c, ch.AcceptanceRate(), ch.StepSize, ch.Divergences)
	}
	if d := tr.Divergences(); d > 0 {
		log.Warningf("%d divergent transitions, the step size may be too large", d)
	}
	return tr, nil
}

func (h *HMC) runChain(c int, start []float64, tune, draws int, keepTuned bool, ch *trace.Chain) error {
	dim := h.target.Dim()
	rnd := rand.New(rand.NewSource(h.seed + 1 + int64(c)))

	x := make([]float64, dim)
	copy(x, start)
	grad := make([]float64, dim)
	lnp := h.target.LogProbGrad(x, grad)
	if !isFinite(lnp) {
		return fmt.Errorf("chain %d: log-density at the initial position is %v", c, lnp)
	}

	xNew := make([]float64, dim)
	gradNew := make([]float64, dim)
	p := make([]float64, dim)
	v := make([]float64, dim)

	da := newDualAveraging(h.s.StepSize, h.s.TargetAccept)
	eps := h.s.StepSize
	for i := 0; i < tune+draws; i++ {
		if i == tune {
			eps = da.adapted()
		}
		steps := h.numSteps(rnd, eps)
		alpha, accepted, divergent, lnpNew := h.transition(rnd, x, xNew, grad, gradNew, p, v, eps, steps, lnp)
		if accepted {
			x, xNew = xNew, x
			grad, gradNew = gradNew, grad
			lnp = lnpNew
			ch.Accepted++
		}
		if divergent {
			ch.Divergences++
		}
		ch.Steps++
		if i < tune {
			eps = da.update(alpha)
		}
		if i >= tune || keepTuned {
			ch.Append(x, lnp)
		}
	}
	if tune > 0 {
		ch.StepSize = da.adapted()
	} else {
		ch.StepSize = eps
	}
	return nil
}

// transition performs one Metropolis-corrected trajectory. It returns
// the acceptance probability fed to step-size tuning, whether the
// proposal was accepted and whether it diverged. On acceptance the
// proposal is left in xNew and gradNew.
func (h *HMC) transition(rnd *rand.Rand, x, xNew, grad, gradNew, p, v []float64, eps float64, steps int, lnp float64) (alpha float64, accepted, divergent bool, lnpNew float64) {
	h.pot.Sample(rnd, p)
	h.pot.Velocity(p, v)
	h0 := kineticEnergy(p, v) - lnp

	copy(xNew, x)
	copy(gradNew, grad)
	lnpNew = leapfrog(h.target, h.pot, xNew, p, v, gradNew, eps, steps)
	h.pot.Velocity(p, v)
	h1 := kineticEnergy(p, v) - lnpNew

	dE := h1 - h0
	if !isFinite(dE) || dE > h.s.MaxEnergyError {
		return 0, false, true, lnp
	}
	alpha = 1
	if dE > 0 {
		alpha = math.Exp(-dE)
	}
	accepted = alpha >= 1 || rnd.Float64() < alpha
	return alpha, accepted, false, lnpNew
}

func (h *HMC) numSteps(rnd *rand.Rand, eps float64) int {
	max := int(h.s.PathLength / eps)
	if max < 1 {
		max = 1
	}
	if max > h.s.MaxSteps {
		max = h.s.MaxSteps
	}
	return 1 + rnd.Intn(max)
}
