package mnorm

import (
	"fmt"
	"math/rand"

	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat/distmv"
)

// Draw samples n independent draws from the target into the rows of a
// new matrix. Used for calibrating estimators against direct samples.
func Draw(t *Target, n int, rnd *rand.Rand) (*mat64.Dense, error) {
	normal, ok := distmv.NewNormal(t.mu, t.cov, rnd)
	if !ok {
		return nil, fmt.Errorf("covariance of size %d is not positive definite", t.Dim())
	}
	m := mat64.NewDense(n, t.Dim(), nil)
	for i := 0; i < n; i++ {
		normal.Rand(m.RawRowView(i))
	}
	return m, nil
}
