package calc_test

import (
	"math"
	"testing"

	"github.com/gonum/matrix/mat64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroscn/idscn/internal/calc"
	"github.com/neuroscn/idscn/internal/dataset"
)

func TestPerturbedLeavesControlUntouched(t *testing.T) {
	e := calc.New(2)
	ctrl := linearCohort()
	sum := ctrl.Checksum()

	for i := 0; i < 3; i++ {
		_, err := e.Perturbed(ctrl, dataset.Row{
			Subject: "pat-x",
			Values:  []float64{22, 3, -6 + float64(i)},
		})
		require.NoError(t, err)
	}
	assert.Equal(t, sum, ctrl.Checksum())
}

func TestDifferentialDiagonalZero(t *testing.T) {
	base := mat64.NewDense(2, 2, []float64{1, 0.5, 0.5, 1})
	pert := mat64.NewDense(2, 2, []float64{1, 0.3, 0.3, 1})

	delta := calc.Differential(base, pert)
	assert.Equal(t, 0.0, delta.At(0, 0))
	assert.Equal(t, 0.0, delta.At(1, 1))
	assert.InDelta(t, -0.2, delta.At(0, 1), 1e-12)
}

func TestZScoreDiagonalOneAndValue(t *testing.T) {
	base := mat64.NewDense(2, 2, []float64{1, 0.5, 0.5, 1})
	delta := mat64.NewDense(2, 2, []float64{0, -0.15, -0.15, 0})

	z, err := calc.ZScore(base, delta, 11)
	require.NoError(t, err)
	assert.Equal(t, 1.0, z.At(0, 0))
	assert.Equal(t, 1.0, z.At(1, 1))
	// (11−1)·(−0.15)/(1−0.25) = −2
	assert.InDelta(t, -2.0, z.At(0, 1), 1e-12)
}

func TestZScoreRejectsDegenerateBaseline(t *testing.T) {
	base := mat64.NewDense(2, 2, []float64{1, 1, 1, 1})
	delta := mat64.NewDense(2, 2, []float64{0, 0.1, 0.1, 0})

	_, err := calc.ZScore(base, delta, 10)
	assert.ErrorIs(t, err, calc.ErrNumericalInstability)
	assert.Contains(t, err.Error(), "(0,1)")
}

func TestBreakingPatientProducesLargeZ(t *testing.T) {
	e := calc.New(1)
	ctrl := linearCohort()

	base, err := e.Network(ctrl)
	require.NoError(t, err)

	// A patient whose r2 contradicts the control cohort's r2 ~ 2*r1 trend.
	row := dataset.Row{Subject: "pat-break", Values: []float64{22, 3, -6}}
	pert, err := e.Perturbed(ctrl, row)
	require.NoError(t, err)

	delta := calc.Differential(base, pert)
	z, err := calc.ZScore(base, delta, ctrl.NRows())
	require.NoError(t, err)

	assert.Greater(t, math.Abs(z.At(0, 1)), 1.0)
}
