package sample

import (
	"testing"

	"github.com/gonum/matrix/mat64"
)

func TestWalkStandardNormal(tst *testing.T) {
	if testing.Short() {
		tst.Skip("skipping test in short mode.")
	}
	target := stdNormal{dim: 2}
	w, err := NewWalk(target, nil, 2, 1)
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	tr, err := w.Run(nil, 500, 4000, false)
	if err != nil {
		tst.Fatal("sampling failed:", err)
	}
	if tr.Len() != 4000 || tr.NumChains() != 2 {
		tst.Fatal("incorrect trace shape")
	}
	m := tr.Flatten(nil)
	for j := 0; j < 2; j++ {
		mean, sd := columnMoments(m, j)
		if !approxEqual(mean, 0, 0.25) {
			tst.Error("incorrect mean for parameter", j, mean)
		}
		if !approxEqual(sd, 1, 0.25) {
			tst.Error("incorrect standard deviation for parameter", j, sd)
		}
	}
	if acc := tr.AcceptanceRate(); acc < 0.05 || acc > 0.9 {
		tst.Error("implausible acceptance rate", acc)
	}
}

func TestWalkKeepTuned(tst *testing.T) {
	target := stdNormal{dim: 1}
	w, err := NewWalk(target, nil, 1, 2)
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	tr, err := w.Run(nil, 30, 20, true)
	if err != nil {
		tst.Fatal("sampling failed:", err)
	}
	if tr.Len() != 50 || tr.Tuned != 30 {
		tst.Error("tuning draws not retained", tr.Len(), tr.Tuned)
	}
	if _, err = w.Run(nil, 30, 0, false); err == nil {
		tst.Error("expected an error when no draws would be retained")
	}
}

func TestWalkProposalCovariance(tst *testing.T) {
	target := stdNormal{dim: 2}
	cov := mat64.NewSymDense(2, []float64{1, 0.5, 0.5, 2})
	w, err := NewWalk(target, cov, 1, 3)
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	scale := 2.38 * 2.38 / 2
	if !approxEqual(w.proposal.At(0, 1), scale*0.5, tolerance) {
		tst.Error("incorrect proposal scaling", w.proposal.At(0, 1))
	}
	if !approxEqual(w.proposal.At(1, 1), scale*2, tolerance) {
		tst.Error("incorrect proposal scaling", w.proposal.At(1, 1))
	}

	bad := mat64.NewSymDense(2, []float64{1, 2, 2, 1})
	if _, err = NewWalk(target, bad, 1, 3); err == nil {
		tst.Error("expected an error for a non positive definite proposal")
	}
	small := mat64.NewSymDense(1, []float64{1})
	if _, err = NewWalk(target, small, 1, 3); err == nil {
		tst.Error("expected a dimension mismatch error")
	}
}

func TestWalkBadInitial(tst *testing.T) {
	w, err := NewWalk(nanDensity{}, nil, 1, 4)
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	if _, err = w.Run([][]float64{{0}}, 10, 10, false); err == nil {
		tst.Error("expected an error for an undefined initial density")
	}
}
