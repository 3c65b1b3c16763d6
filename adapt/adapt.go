/*

Package adapt implements windowed mass-matrix adaptation for MCMC
samplers.

Tuning is split into a schedule of doubling windows. Every window
draws a burst of samples with the current mass matrix, then the
covariance of all tuning draws collected so far becomes the mass
matrix of the next window. Samplers are rebuilt from scratch at every
boundary, so step-size tuning restarts against the new metric. After
the last window a final sampler runs a fresh burn-in followed by the
production draws.

The sampler is an external collaborator behind the Sampler interface;
rebuilding is delegated to a SamplerBuilder, so the loop works with
any engine that accepts a covariance as its metric.

*/
package adapt

import (
	"fmt"

	"github.com/gonum/matrix/mat64"
	"github.com/op/go-logging"

	"bitbucket.org/cstatlab/covadapt/checkpoint"
	"bitbucket.org/cstatlab/covadapt/trace"
)

// log is the global logging variable.
var log = logging.MustGetLogger("adapt")

// Sampler advances a fixed set of chains by tune adaptation
// transitions followed by draws retained transitions. When keepTuned
// is true the tuning draws are retained in the trace as well. A nil
// start lets the sampler choose initial positions.
type Sampler interface {
	Run(start [][]float64, tune, draws int, keepTuned bool) (*trace.Trace, error)
}

// SamplerBuilder creates a sampler using the given mass-matrix
// estimate. A nil covariance requests the initial sampler with a unit
// metric.
type SamplerBuilder func(cov *mat64.SymDense) (Sampler, error)

// Phase describes the state of the adaptation loop.
type Phase int

const (
	// Uninitialized means no tuning window has completed yet and the
	// mass matrix is still the unit metric.
	Uninitialized Phase = iota
	// Windowed means at least one window has completed and the mass
	// matrix comes from the accumulated tuning draws.
	Windowed
	// Finalized means the production run has finished.
	Finalized
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Windowed:
		return "windowed"
	case Finalized:
		return "finalized"
	}
	return fmt.Sprintf("unknown phase %d", int(p))
}

// Settings hold the parameters of the adaptation loop.
type Settings struct {
	// InitialWindow is the length of the first tuning window.
	InitialWindow int
	// BurnIn is the number of tuning steps of the final run, after
	// the windows and before the production draws.
	BurnIn int
	// TotalTune is the total tuning budget, windows plus burn-in.
	TotalTune int
	// Draws is the number of production draws per chain.
	Draws int
	// RegularWindow is the weight of the shrinkage regularization of
	// covariance estimates; zero disables regularization.
	RegularWindow int
	// RegularVariance is the prior diagonal variance used by the
	// regularization.
	RegularVariance float64
	// Seed is recorded in checkpoints so a resumed run can be checked
	// against its original invocation.
	Seed int64
}

// NewSettings creates adaptation settings with default values.
func NewSettings() *Settings {
	return &Settings{
		InitialWindow:   25,
		BurnIn:          500,
		TotalTune:       5000,
		Draws:           5000,
		RegularWindow:   0,
		RegularVariance: 1e-3,
	}
}

// Adapter drives the windowed adaptation loop.
type Adapter struct {
	build   SamplerBuilder
	s       Settings
	windows []int

	phase   Phase
	window  int // completed windows
	running *trace.Trace
	start   [][]float64
	cov     *mat64.SymDense

	chkio *checkpoint.CheckpointIO
}

// New creates an adapter for the given sampler builder. The window
// schedule is computed eagerly, so invalid settings are reported here.
func New(build SamplerBuilder, s *Settings) (*Adapter, error) {
	if build == nil {
		return nil, fmt.Errorf("no sampler builder")
	}
	if s == nil {
		s = NewSettings()
	}
	if s.Draws < 1 {
		return nil, fmt.Errorf("number of draws must be at least 1, got %d", s.Draws)
	}
	if s.RegularWindow < 0 {
		return nil, fmt.Errorf("regularization weight must not be negative, got %d", s.RegularWindow)
	}
	if s.RegularWindow > 0 && s.RegularVariance <= 0 {
		return nil, fmt.Errorf("regularization variance must be positive, got %v", s.RegularVariance)
	}
	windows, err := Plan(s.InitialWindow, s.BurnIn, s.TotalTune)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		build:   build,
		s:       *s,
		windows: windows,
		phase:   Uninitialized,
	}, nil
}

// SetCheckpointIO enables checkpointing through chkio.
func (a *Adapter) SetCheckpointIO(chkio *checkpoint.CheckpointIO) {
	a.chkio = chkio
}

// SetStart sets the initial chain positions for the first tuning
// window. It has no effect once tuning has started, in particular
// after a restore.
func (a *Adapter) SetStart(start [][]float64) {
	if a.phase == Uninitialized {
		a.start = start
	}
}

// Windows returns the window schedule.
func (a *Adapter) Windows() []int {
	return a.windows
}

// Phase returns the current adaptation phase.
func (a *Adapter) Phase() Phase {
	return a.phase
}

// Window returns the number of completed tuning windows.
func (a *Adapter) Window() int {
	return a.window
}

// MassMatrix returns the current covariance estimate, nil while the
// metric is still the unit one.
func (a *Adapter) MassMatrix() *mat64.SymDense {
	return a.cov
}

// TuningTrace returns the retained tuning draws accumulated so far.
func (a *Adapter) TuningTrace() *trace.Trace {
	return a.running
}

// step creates the sampler for the next burst. With tuning draws
// accumulated their covariance, regularized according to the
// settings, becomes the new metric; otherwise the builder gets nil
// and falls back to the unit metric.
func (a *Adapter) step() (Sampler, error) {
	var cov *mat64.SymDense
	if a.running != nil {
		var err error
		cov, err = Covariance(a.running)
		if err != nil {
			return nil, err
		}
		cov = Regularize(cov, a.running.TotalDraws(), a.s.RegularWindow, a.s.RegularVariance)
		a.cov = cov
	}
	return a.build(cov)
}

// Run executes the window schedule and the final sampling run. The
// returned trace contains only the production draws; tuning draws
// remain available through TuningTrace. Any schedule, estimation or
// sampling error aborts the run.
func (a *Adapter) Run() (*trace.Trace, error) {
	for i := a.window; i < len(a.windows); i++ {
		n := a.windows[i]
		log.Infof("Tuning window %d/%d: %d steps", i+1, len(a.windows), n)
		sampler, err := a.step()
		if err != nil {
			return nil, fmt.Errorf("tuning window %d: %v", i+1, err)
		}
		burst, err := sampler.Run(a.start, n, 0, true)
		if err != nil {
			return nil, fmt.Errorf("tuning window %d: %v", i+1, err)
		}
		if a.running == nil {
			a.running = burst
		} else if err = a.running.Extend(burst); err != nil {
			return nil, fmt.Errorf("tuning window %d: %v", i+1, err)
		}
		a.start = a.running.FinalPositions()
		a.window = i + 1
		a.phase = Windowed
		a.SaveCheckpoint(false)
	}

	log.Infof("Final run: %d burn-in steps, %d draws", a.s.BurnIn, a.s.Draws)
	sampler, err := a.step()
	if err != nil {
		return nil, fmt.Errorf("final run: %v", err)
	}
	final, err := sampler.Run(a.start, a.s.BurnIn, a.s.Draws, false)
	if err != nil {
		return nil, fmt.Errorf("final run: %v", err)
	}
	a.start = final.FinalPositions()
	a.phase = Finalized
	a.SaveCheckpoint(true)
	return final, nil
}

// SaveCheckpoint stores the adaptation state if a CheckpointIO is
// configured. Intermediate saves are rate limited, the final one is
// unconditional.
func (a *Adapter) SaveCheckpoint(final bool) {
	if a.chkio == nil {
		return
	}
	if !final && !a.chkio.Old() {
		return
	}
	data := &checkpoint.CheckpointData{
		Window:    a.window,
		Windows:   a.windows,
		Positions: a.start,
		Seed:      a.s.Seed,
		Final:     final,
	}
	if a.running != nil {
		data.Names = a.running.Names()
		data.StepSizes = a.running.StepSizes()
		nc := a.running.NumChains()
		data.Chains = make([][][]float64, nc)
		data.LogProbs = make([][]float64, nc)
		for c := 0; c < nc; c++ {
			ch := a.running.Chain(c)
			draws := make([][]float64, ch.Len())
			lnps := make([]float64, ch.Len())
			for i := range draws {
				draws[i] = ch.Draw(i)
				lnps[i] = ch.LogProb(i)
			}
			data.Chains[c] = draws
			data.LogProbs[c] = lnps
		}
	}
	a.chkio.Save(data)
}

// Restore resumes the adaptation state from a checkpoint. It must be
// called before Run. The checkpoint schedule has to match the one
// computed from the settings.
func (a *Adapter) Restore(data *checkpoint.CheckpointData) error {
	if data == nil {
		return nil
	}
	if !equalWindows(data.Windows, a.windows) {
		return fmt.Errorf("checkpoint schedule %v does not match %v", data.Windows, a.windows)
	}
	if data.Window < 0 || data.Window > len(a.windows) {
		return fmt.Errorf("checkpoint window %d out of range", data.Window)
	}
	nc := len(data.Chains)
	if nc == 0 || len(data.Names) == 0 {
		return fmt.Errorf("checkpoint contains no draws")
	}
	if len(data.LogProbs) != nc || len(data.Positions) != nc {
		return fmt.Errorf("checkpoint chain layout is inconsistent")
	}

	tr := trace.New(data.Names, nc)
	for c := 0; c < nc; c++ {
		if len(data.LogProbs[c]) != len(data.Chains[c]) {
			return fmt.Errorf("checkpoint chain %d layout is inconsistent", c)
		}
		ch := tr.Chain(c)
		for i, x := range data.Chains[c] {
			if len(x) != len(data.Names) || len(data.Positions[c]) != len(data.Names) {
				return fmt.Errorf("checkpoint chain %d dimension is inconsistent", c)
			}
			ch.Append(x, data.LogProbs[c][i])
		}
		if c < len(data.StepSizes) {
			ch.StepSize = data.StepSizes[c]
		}
	}
	tr.Tuned = tr.Len()

	if want := planSum(a.windows[:data.Window]); tr.Len() != want {
		log.Warningf("Checkpoint has %d draws per chain, expected %d for %d windows", tr.Len(), want, data.Window)
	}

	a.running = tr
	a.window = data.Window
	a.start = data.Positions
	a.phase = Windowed
	log.Noticef("Resuming after %d of %d tuning windows (%d tuning draws)", a.window, len(a.windows), tr.TotalDraws())
	return nil
}

func equalWindows(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if b[i] != v {
			return false
		}
	}
	return true
}
