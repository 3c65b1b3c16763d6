package sample

import (
	lbfgsb "github.com/idavydov/go-lbfgsb"
)

// negTarget presents the negated log-density to the minimizer.
type negTarget struct {
	t     Target
	grad  []float64
	calls int
}

func (n *negTarget) EvaluateFunction(x []float64) float64 {
	n.calls++
	return -n.t.LogProbGrad(x, n.grad)
}

func (n *negTarget) EvaluateGradient(x []float64) []float64 {
	n.calls++
	n.t.LogProbGrad(x, n.grad)
	for i, g := range n.grad {
		n.grad[i] = -g
	}
	return n.grad
}

// FindMAP maximizes the log-density with L-BFGS-B starting from x0
// and returns the mode. The mode is a reasonable common starting
// point for chains when nothing better is known.
func FindMAP(t Target, x0 []float64) []float64 {
	obj := &negTarget{t: t, grad: make([]float64, t.Dim())}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-9)
	opt.SetGTolerance(1e-9)
	opt.SetLogger(func(info *lbfgsb.OptimizationIterationInformation) {
		log.Debugf("mode search iteration %d: lnp=%v", info.Iteration, -info.F)
	})

	minimum, exitStatus := opt.Minimize(obj, x0)
	log.Infof("mode search: lnp=%v after %d evaluations, exit status: %v",
		-minimum.F, obj.calls, exitStatus)
	return minimum.X
}
