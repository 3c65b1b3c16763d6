package main

import (
	"fmt"

	"github.com/gonum/matrix/mat64"

	"bitbucket.org/cstatlab/covadapt/adapt"
	"bitbucket.org/cstatlab/covadapt/mnorm"
	"bitbucket.org/cstatlab/covadapt/sample"
)

// samplerSettings stores settings for creation of new samplers.
type samplerSettings struct {
	target *mnorm.Target

	method string
	metric string

	chains   int
	stepSize float64
	pathLen  float64
	accept   float64

	seed   int64
	builds int64
}

// newSamplerSettings creates a new samplerSettings from the command
// line parameters (global variables).
func newSamplerSettings(target *mnorm.Target, seed int64) *samplerSettings {
	return &samplerSettings{
		target: target,

		method: *method,
		metric: *metric,

		chains:   *chains,
		stepSize: *stepSize,
		pathLen:  *pathLen,
		accept:   *accept,

		seed: seed,
	}
}

// builder returns a sampler builder for the configured method. Every
// call consumes a fresh slice of the seed space, so samplers rebuilt
// at window boundaries do not share random streams.
func (s *samplerSettings) builder() adapt.SamplerBuilder {
	return func(cov *mat64.SymDense) (adapt.Sampler, error) {
		seed := s.nextSeed()
		switch s.method {
		case "hmc":
			pot, err := s.potential(cov)
			if err != nil {
				return nil, err
			}
			hs := sample.NewSettings()
			hs.StepSize = s.stepSize
			hs.PathLength = s.pathLen
			hs.TargetAccept = s.accept
			hs.Chains = s.chains
			return sample.NewHMC(s.target, pot, hs, seed)
		case "walk":
			if cov != nil && s.metric == "diag" {
				cov = diagOf(cov)
			}
			return sample.NewWalk(s.target, cov, s.chains, seed)
		}
		return nil, fmt.Errorf("Unknown sampling method: %s", s.method)
	}
}

// potential returns the mass-matrix potential for a covariance
// estimate, nil requests the unit metric.
func (s *samplerSettings) potential(cov *mat64.SymDense) (sample.Potential, error) {
	if cov == nil {
		return nil, nil
	}
	switch s.metric {
	case "dense":
		return sample.NewDensePotential(cov)
	case "diag":
		return sample.NewDiagPotentialFromCov(cov)
	}
	return nil, fmt.Errorf("Unknown metric: %s", s.metric)
}

func (s *samplerSettings) nextSeed() (seed int64) {
	seed = s.seed + s.builds*int64(s.chains+1)
	s.builds++
	return
}

// skipBuilds aligns the seed space with the number of samplers a
// resumed run has already consumed.
func (s *samplerSettings) skipBuilds(n int) {
	s.builds = int64(n)
}

// start returns the initial chain positions. By default samplers
// choose random ones; with -mapstart all chains begin at the mode.
func (s *samplerSettings) start() [][]float64 {
	if !*mapStart {
		return nil
	}
	log.Notice("Searching for the posterior mode")
	mode := sample.FindMAP(s.target, make([]float64, s.target.Dim()))
	start := make([][]float64, s.chains)
	for c := range start {
		x := make([]float64, len(mode))
		copy(x, mode)
		start[c] = x
	}
	return start
}

// diagOf returns a copy of the covariance with all off-diagonal
// entries dropped.
func diagOf(cov *mat64.SymDense) *mat64.SymDense {
	n := cov.Symmetric()
	d := mat64.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		d.SetSym(i, i, cov.At(i, i))
	}
	return d
}
