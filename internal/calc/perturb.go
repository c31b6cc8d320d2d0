package calc

import (
	"fmt"

	"github.com/gonum/matrix/mat64"

	"github.com/neuroscn/idscn/internal/dataset"
)

// Perturbed recomputes the partial-correlation network over the control
// table with one patient row mixed in. The control table is copied, never
// mutated; repeated calls with different patients are independent.
func (e *Engine) Perturbed(ctrl *dataset.Table, patient dataset.Row) (*mat64.Dense, error) {
	mixed, err := ctrl.Mix(patient)
	if err != nil {
		return nil, err
	}
	pcn, err := e.Network(mixed)
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w", patient.Subject, err)
	}
	return pcn, nil
}

// Differential returns perturbed − base elementwise with the diagonal
// forced to exactly 0.
func Differential(base, perturbed *mat64.Dense) *mat64.Dense {
	n, _ := base.Dims()
	delta := mat64.NewDense(n, n, nil)
	delta.Sub(perturbed, base)
	for i := 0; i < n; i++ {
		delta.Set(i, i, 0.0)
	}
	return delta
}

// ZScore standardizes a differential network against its baseline:
//
//	Z[i][j] = (nCtrl − 1) · delta[i][j] / (1 − base[i][j]²), i ≠ j
//
// with the diagonal forced to 1 by convention. The denominator collapses as
// the baseline correlation approaches ±1; rather than emitting ±Inf into the
// significance stage, a near-zero denominator is an ErrNumericalInstability
// naming the edge.
func ZScore(base, delta *mat64.Dense, nCtrl int) (*mat64.Dense, error) {
	n, _ := base.Dims()
	dn, _ := delta.Dims()
	if n != dn {
		return nil, fmt.Errorf("%w: base is %dx%d but delta is %dx%d",
			ErrNumericalInstability, n, n, dn, dn)
	}

	z := mat64.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				z.Set(i, j, 1.0)
				continue
			}
			r := base.At(i, j)
			d := 1.0 - r*r
			if d < 1e-12 {
				return nil, fmt.Errorf("%w: baseline correlation %.6f at edge (%d,%d)",
					ErrNumericalInstability, r, i, j)
			}
			z.Set(i, j, float64(nCtrl-1)*delta.At(i, j)/d)
		}
	}
	return z, nil
}
