// Package trace stores parameter draws accumulated by MCMC samplers.
package trace

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gonum/matrix/mat64"
)

// Chain stores the draws of a single independent chain.
type Chain struct {
	draws [][]float64
	lnps  []float64
	last  []float64

	// Accepted is the number of accepted transitions.
	Accepted int
	// Steps is the total number of transitions.
	Steps int
	// Divergences is the number of divergent transitions.
	Divergences int
	// StepSize is the integrator step size after tuning.
	StepSize float64
}

// Append adds a draw and its log-density to the chain. The value is
// copied.
func (c *Chain) Append(x []float64, lnp float64) {
	v := make([]float64, len(x))
	copy(v, x)
	c.draws = append(c.draws, v)
	c.lnps = append(c.lnps, lnp)
	c.last = v
}

// Len returns the number of draws in the chain.
func (c *Chain) Len() int {
	return len(c.draws)
}

// Draw returns draw i. The caller must not modify the result.
func (c *Chain) Draw(i int) []float64 {
	return c.draws[i]
}

// LogProb returns the log-density of draw i.
func (c *Chain) LogProb(i int) float64 {
	return c.lnps[i]
}

// Last returns a copy of the last visited position.
func (c *Chain) Last() []float64 {
	if c.last == nil {
		return nil
	}
	v := make([]float64, len(c.last))
	copy(v, c.last)
	return v
}

// Series extracts the series of a single parameter. If dst is nil a
// new slice is allocated.
func (c *Chain) Series(p int, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(c.draws))
	}
	for i, x := range c.draws {
		dst[i] = x[p]
	}
	return dst
}

// AcceptanceRate returns the fraction of accepted transitions.
func (c *Chain) AcceptanceRate() float64 {
	if c.Steps == 0 {
		return 0
	}
	return float64(c.Accepted) / float64(c.Steps)
}

// Trace is an append-only collection of draws from multiple chains.
type Trace struct {
	names  []string
	chains []*Chain

	// Tuned is the number of leading tuning draws retained in every
	// chain (zero when tuning draws were discarded).
	Tuned int
}

// New creates an empty trace for nchains chains over the named
// parameters.
func New(names []string, nchains int) *Trace {
	t := &Trace{
		names:  names,
		chains: make([]*Chain, nchains),
	}
	for i := range t.chains {
		t.chains[i] = &Chain{}
	}
	return t
}

// Dim returns the dimensionality of the parameter space.
func (t *Trace) Dim() int {
	return len(t.names)
}

// NumChains returns the number of chains.
func (t *Trace) NumChains() int {
	return len(t.chains)
}

// Names returns the parameter names.
func (t *Trace) Names() []string {
	return t.names
}

// Chain returns chain c.
func (t *Trace) Chain(c int) *Chain {
	return t.chains[c]
}

// Len returns the number of draws per chain. All chains advance in
// lockstep, so the first chain is authoritative.
func (t *Trace) Len() int {
	if len(t.chains) == 0 {
		return 0
	}
	return t.chains[0].Len()
}

// TotalDraws returns the number of draws pooled across all chains.
func (t *Trace) TotalDraws() int {
	n := 0
	for _, c := range t.chains {
		n += c.Len()
	}
	return n
}

// Extend appends the draws of a later burst to the trace, adopting the
// burst's end positions and accumulating its counters. Chain layouts
// must match.
func (t *Trace) Extend(burst *Trace) error {
	if burst.NumChains() != t.NumChains() {
		return fmt.Errorf("chain number mismatch: %d != %d", burst.NumChains(), t.NumChains())
	}
	if burst.Dim() != t.Dim() {
		return fmt.Errorf("dimension mismatch: %d != %d", burst.Dim(), t.Dim())
	}
	for i, c := range t.chains {
		b := burst.chains[i]
		c.draws = append(c.draws, b.draws...)
		c.lnps = append(c.lnps, b.lnps...)
		if b.last != nil {
			c.last = b.last
		}
		c.Accepted += b.Accepted
		c.Steps += b.Steps
		c.Divergences += b.Divergences
		c.StepSize = b.StepSize
	}
	t.Tuned += burst.Tuned
	return nil
}

// Flatten copies all draws into a TotalDraws x Dim matrix (rows are
// draws pooled across chains). If dst is nil or of the wrong size a
// new matrix is allocated.
func (t *Trace) Flatten(dst *mat64.Dense) *mat64.Dense {
	rows := t.TotalDraws()
	cols := t.Dim()
	if dst == nil {
		dst = mat64.NewDense(rows, cols, nil)
	} else if r, c := dst.Dims(); r != rows || c != cols {
		dst = mat64.NewDense(rows, cols, nil)
	}
	i := 0
	for _, c := range t.chains {
		for _, x := range c.draws {
			dst.SetRow(i, x)
			i++
		}
	}
	return dst
}

// FinalPositions returns a copy of the last visited position of every
// chain, usable as the start of a subsequent burst.
func (t *Trace) FinalPositions() [][]float64 {
	pos := make([][]float64, len(t.chains))
	for i, c := range t.chains {
		pos[i] = c.Last()
	}
	return pos
}

// Divergences returns the total number of divergent transitions.
func (t *Trace) Divergences() int {
	n := 0
	for _, c := range t.chains {
		n += c.Divergences
	}
	return n
}

// StepSizes returns the tuned step size of every chain.
func (t *Trace) StepSizes() []float64 {
	s := make([]float64, len(t.chains))
	for i, c := range t.chains {
		s[i] = c.StepSize
	}
	return s
}

// AcceptanceRate returns the fraction of accepted transitions pooled
// across chains.
func (t *Trace) AcceptanceRate() float64 {
	var acc, steps int
	for _, c := range t.chains {
		acc += c.Accepted
		steps += c.Steps
	}
	if steps == 0 {
		return 0
	}
	return float64(acc) / float64(steps)
}

// WriteTSV writes the trace as a tab-separated table with one row per
// draw: iteration, chain, log-density and parameter values.
func (t *Trace) WriteTSV(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "iteration\tchain\tlnp\t%s\n", namesString(t.names)); err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		for ci, c := range t.chains {
			if i >= c.Len() {
				continue
			}
			if _, err := fmt.Fprintf(w, "%d\t%d\t%f\t%s\n", i, ci, c.lnps[i], valuesString(c.draws[i])); err != nil {
				return err
			}
		}
	}
	return nil
}

func namesString(names []string) (s string) {
	for i, n := range names {
		if i != 0 {
			s += "\t"
		}
		s += n
	}
	return
}

func valuesString(v []float64) (s string) {
	for i, x := range v {
		if i != 0 {
			s += "\t"
		}
		s += strconv.FormatFloat(x, 'f', 6, 64)
	}
	return
}
