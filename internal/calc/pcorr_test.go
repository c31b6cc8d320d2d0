package calc_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gonum/matrix/mat64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroscn/idscn/internal/calc"
	"github.com/neuroscn/idscn/internal/dataset"
)

// linearCohort builds controls with region r2 ~ 2*r1 plus small noise and an
// age covariate that is not collinear with either region.
func linearCohort() *dataset.Table {
	ages := []float64{23, 21, 25, 20, 24, 22}
	r1 := []float64{1, 2, 3, 4, 5, 6}
	noise := []float64{0.12, -0.09, 0.15, -0.11, 0.08, -0.13}

	data := make([]float64, 0, 18)
	subs := make([]string, 6)
	for i := 0; i < 6; i++ {
		subs[i] = "ctrl-" + string(rune('a'+i))
		data = append(data, ages[i], r1[i], 2*r1[i]+noise[i])
	}
	return &dataset.Table{
		Subjects: subs,
		Covas:    []string{"age"},
		Regions:  []string{"r1", "r2"},
		Data:     mat64.NewDense(6, 3, data),
	}
}

// randomCohort builds a cohort with continuous, non-degenerate values.
func randomCohort(subjects int, prefix string, seed int64) *dataset.Table {
	rng := rand.New(rand.NewSource(seed))
	regions := []string{"rA", "rB", "rC"}
	subs := make([]string, subjects)
	data := make([]float64, 0, subjects*4)
	for i := 0; i < subjects; i++ {
		subs[i] = prefix + string(rune('a'+i))
		data = append(data, 20+10*rng.Float64(),
			rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
	}
	return &dataset.Table{
		Subjects: subs,
		Covas:    []string{"age"},
		Regions:  regions,
		Data:     mat64.NewDense(subjects, 4, data),
	}
}

func TestNetworkSymmetricUnitDiagonal(t *testing.T) {
	e := calc.New(2)
	pcn, err := e.Network(randomCohort(9, "c", 11))
	require.NoError(t, err)

	n, _ := pcn.Dims()
	for i := 0; i < n; i++ {
		assert.Equal(t, 1.0, pcn.At(i, i))
		for j := 0; j < n; j++ {
			assert.Equal(t, pcn.At(i, j), pcn.At(j, i), "edge (%d,%d)", i, j)
			assert.LessOrEqual(t, math.Abs(pcn.At(i, j)), 1.0)
		}
	}
}

func TestNetworkIdempotent(t *testing.T) {
	e := calc.New(4)
	tbl := randomCohort(8, "c", 5)

	first, err := e.Network(tbl)
	require.NoError(t, err)
	second, err := e.Network(tbl)
	require.NoError(t, err)

	n, _ := first.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.Equal(t, first.At(i, j), second.At(i, j))
		}
	}
}

func TestNetworkRecoversLinearRelationship(t *testing.T) {
	e := calc.New(1)
	pcn, err := e.Network(linearCohort())
	require.NoError(t, err)

	assert.Greater(t, pcn.At(0, 1), 0.8)
	assert.Equal(t, pcn.At(0, 1), pcn.At(1, 0))
}

func TestNetworkInsufficientRows(t *testing.T) {
	tbl := linearCohort()
	short := tbl.Select([]int{0, 1, 2}) // 3 rows < covariates+3
	_, err := calc.New(1).Network(short)
	assert.ErrorIs(t, err, calc.ErrInsufficientData)
}

func TestNetworkConstantColumn(t *testing.T) {
	tbl := linearCohort()
	for i := 0; i < tbl.NRows(); i++ {
		tbl.Data.Set(i, 1, 7.0) // flatten region r1
	}
	_, err := calc.New(1).Network(tbl)
	assert.ErrorIs(t, err, calc.ErrConstantColumn)
	assert.Contains(t, err.Error(), "r1")
}
