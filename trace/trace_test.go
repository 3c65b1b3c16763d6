package trace

import (
	"bytes"
	"strings"
	"testing"
)

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

func newTestTrace(nchains, ndraws int) *Trace {
	tr := New([]string{"a", "b"}, nchains)
	for c := 0; c < nchains; c++ {
		ch := tr.Chain(c)
		for i := 0; i < ndraws; i++ {
			x := []float64{float64(c), float64(i)}
			ch.Append(x, -float64(i))
		}
		ch.Accepted = ndraws
		ch.Steps = ndraws
		ch.StepSize = 0.1 * float64(c+1)
	}
	return tr
}

func TestAppendCopies(tst *testing.T) {
	tr := New([]string{"a"}, 1)
	x := []float64{1}
	tr.Chain(0).Append(x, 0)
	x[0] = 2
	if tr.Chain(0).Draw(0)[0] != 1 {
		tst.Error("append did not copy the draw")
	}
}

func TestLenAndTotal(tst *testing.T) {
	tr := newTestTrace(3, 7)
	if tr.Len() != 7 {
		tst.Error("incorrect chain length", tr.Len())
	}
	if tr.TotalDraws() != 21 {
		tst.Error("incorrect total draws", tr.TotalDraws())
	}
	if tr.Dim() != 2 {
		tst.Error("incorrect dimension", tr.Dim())
	}
}

func TestExtend(tst *testing.T) {
	tr := newTestTrace(2, 5)
	burst := newTestTrace(2, 3)
	burst.Chain(0).Append([]float64{9, 9}, -9)
	err := tr.Extend(burst)
	if err != nil {
		tst.Fatal("extend failed:", err)
	}
	if tr.Chain(0).Len() != 9 {
		tst.Error("incorrect extended length", tr.Chain(0).Len())
	}
	if tr.Chain(1).Len() != 8 {
		tst.Error("incorrect extended length", tr.Chain(1).Len())
	}
	last := tr.Chain(0).Last()
	if last[0] != 9 || last[1] != 9 {
		tst.Error("end position not adopted", last)
	}
	if tr.Chain(0).Steps != 8 {
		tst.Error("steps not accumulated", tr.Chain(0).Steps)
	}
	if !approxEqual(tr.Chain(0).StepSize, 0.1, 1e-12) {
		tst.Error("step size not adopted", tr.Chain(0).StepSize)
	}
}

func TestExtendMismatch(tst *testing.T) {
	tr := newTestTrace(2, 5)
	burst := newTestTrace(3, 2)
	if err := tr.Extend(burst); err == nil {
		tst.Error("expected chain mismatch error")
	}
	other := New([]string{"a", "b", "c"}, 2)
	if err := tr.Extend(other); err == nil {
		tst.Error("expected dimension mismatch error")
	}
}

func TestFlatten(tst *testing.T) {
	tr := newTestTrace(2, 4)
	m := tr.Flatten(nil)
	r, c := m.Dims()
	if r != 8 || c != 2 {
		tst.Fatal("incorrect flattened size", r, c)
	}
	// chain 0 rows first, then chain 1
	if m.At(0, 0) != 0 || m.At(4, 0) != 1 {
		tst.Error("incorrect row order")
	}
	if m.At(3, 1) != 3 {
		tst.Error("incorrect draw values")
	}
	// reuse of a correctly sized destination
	m2 := tr.Flatten(m)
	if m2 != m {
		tst.Error("destination not reused")
	}
}

func TestFinalPositions(tst *testing.T) {
	tr := newTestTrace(2, 4)
	pos := tr.FinalPositions()
	if len(pos) != 2 {
		tst.Fatal("incorrect number of positions")
	}
	if pos[1][0] != 1 || pos[1][1] != 3 {
		tst.Error("incorrect final position", pos[1])
	}
	pos[1][0] = 99
	if tr.Chain(1).Last()[0] == 99 {
		tst.Error("final positions alias chain storage")
	}
}

func TestSeries(tst *testing.T) {
	tr := newTestTrace(1, 5)
	s := tr.Chain(0).Series(1, nil)
	if len(s) != 5 {
		tst.Fatal("incorrect series length")
	}
	for i, v := range s {
		if v != float64(i) {
			tst.Error("incorrect series value", i, v)
		}
	}
}

func TestAcceptanceRate(tst *testing.T) {
	tr := newTestTrace(2, 10)
	tr.Chain(0).Accepted = 5
	if !approxEqual(tr.AcceptanceRate(), 0.75, 1e-12) {
		tst.Error("incorrect acceptance rate", tr.AcceptanceRate())
	}
	if !approxEqual(tr.Chain(0).AcceptanceRate(), 0.5, 1e-12) {
		tst.Error("incorrect chain acceptance rate")
	}
}

func TestWriteTSV(tst *testing.T) {
	tr := newTestTrace(2, 2)
	var buf bytes.Buffer
	if err := tr.WriteTSV(&buf); err != nil {
		tst.Fatal("write failed:", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		tst.Fatal("incorrect number of lines", len(lines))
	}
	if lines[0] != "iteration\tchain\tlnp\ta\tb" {
		tst.Error("incorrect header", lines[0])
	}
	fields := strings.Split(lines[1], "\t")
	if fields[0] != "0" || fields[1] != "0" {
		tst.Error("incorrect first row", lines[1])
	}
}
