package sample

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat/samplemv"

	"bitbucket.org/cstatlab/covadapt/trace"
)

// logDensity adapts a Target to the LogProber interface expected by
// samplemv. Each chain owns one instance so the gradient buffer is
// not shared.
type logDensity struct {
	t    Target
	grad []float64
}

func (d *logDensity) LogProb(x []float64) float64 {
	return d.t.LogProbGrad(x, d.grad)
}

func (d *logDensity) Dim() int {
	return d.t.Dim()
}

// Walk is a random-walk Metropolis-Hastings sampler with a
// multivariate normal proposal. The proposal covariance is the scaled
// mass-matrix estimate 2.38^2/dim * C (Haario et al. 2001), so the
// sampler plugs into the same windowed adaptation loop as HMC. It
// needs no gradients and serves as a cheap reference engine.
type Walk struct {
	target   Target
	proposal *mat64.SymDense
	chains   int
	seed     int64
}

// NewWalk creates a random-walk sampler for the target. A nil cov
// defaults to the identity; otherwise the scaled covariance must be
// positive definite.
func NewWalk(t Target, cov *mat64.SymDense, chains int, seed int64) (*Walk, error) {
	dim := t.Dim()
	if dim < 1 {
		return nil, fmt.Errorf("dimension must be at least 1, got %d", dim)
	}
	if chains < 1 {
		return nil, fmt.Errorf("number of chains must be at least 1, got %d", chains)
	}
	if cov != nil && cov.Symmetric() != dim {
		return nil, fmt.Errorf("covariance dimension %d does not match target dimension %d", cov.Symmetric(), dim)
	}
	scale := 2.38 * 2.38 / float64(dim)
	prop := mat64.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			switch {
			case cov != nil:
				prop.SetSym(i, j, scale*cov.At(i, j))
			case i == j:
				prop.SetSym(i, i, scale)
			}
		}
	}
	if _, ok := samplemv.NewProposalNormal(prop, nil); !ok {
		return nil, fmt.Errorf("proposal covariance of size %d is not positive definite", dim)
	}
	return &Walk{target: t, proposal: prop, chains: chains, seed: seed}, nil
}

// Run advances all chains by tune burn-in transitions followed by
// draws retained transitions. When keepTuned is true the burn-in
// draws are retained too. Walk has no step size to tune, so the
// tuning phase only moves the chains. A nil start jitters initial
// positions uniformly in [-1, 1]^dim.
func (w *Walk) Run(start [][]float64, tune, draws int, keepTuned bool) (*trace.Trace, error) {
	if tune < 0 || draws < 0 || tune+draws == 0 {
		return nil, fmt.Errorf("nothing to sample: tune=%d, draws=%d", tune, draws)
	}
	keep := draws
	burnIn := tune
	if keepTuned {
		keep = tune + draws
		burnIn = 0
	}
	if keep == 0 {
		return nil, fmt.Errorf("no draws would be retained: tune=%d, draws=%d", tune, draws)
	}
	dim := w.target.Dim()
	start, err := startPositions(start, dim, w.chains, rand.New(rand.NewSource(w.seed)))
	if err != nil {
		return nil, err
	}

	tr := newTrace(w.target, w.chains)
	if keepTuned {
		tr.Tuned = tune
	}
	errs := make([]error, w.chains)
	var wg sync.WaitGroup
	for c := 0; c < w.chains; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			errs[c] = w.runChain(c, start[c], burnIn, keep, tr.Chain(c))
		}(c)
	}
	wg.Wait()
	if err := firstError(errs); err != nil {
		return nil, err
	}
	for c := 0; c < w.chains; c++ {
		log.Debugf("chain %d: acceptance rate %.3f", c, tr.Chain(c).AcceptanceRate())
	}
	return tr, nil
}

func (w *Walk) runChain(c int, start []float64, burnIn, keep int, ch *trace.Chain) error {
	dim := w.target.Dim()
	rnd := rand.New(rand.NewSource(w.seed + 1 + int64(c)))
	density := &logDensity{t: w.target, grad: make([]float64, dim)}
	if lnp := density.LogProb(start); !isFinite(lnp) {
		return fmt.Errorf("chain %d: log-density at the initial position is %v", c, lnp)
	}
	proposal, ok := samplemv.NewProposalNormal(w.proposal, rnd)
	if !ok {
		return fmt.Errorf("chain %d: proposal covariance is not positive definite", c)
	}
	mh := samplemv.MetropolisHastingser{
		Initial:  start,
		Target:   density,
		Proposal: proposal,
		Src:      rnd,
		BurnIn:   burnIn,
		Rate:     1,
	}
	batch := mat64.NewDense(keep, dim, nil)
	mh.Sample(batch)

	// The sampler hides its acceptance decisions, a changed row means
	// the proposal was accepted.
	var prev []float64
	for i := 0; i < keep; i++ {
		x := batch.RawRowView(i)
		ch.Append(x, density.LogProb(x))
		if prev != nil && !floats.Equal(x, prev) {
			ch.Accepted++
		}
		prev = x
	}
	ch.Steps = keep
	return nil
}
