package calc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroscn/idscn/internal/calc"
)

func TestGroupDifferenceDeterministicForSeed(t *testing.T) {
	e := calc.New(3)
	ctrl := randomCohort(8, "c", 21)
	pati := randomCohort(8, "p", 22)

	first, err := e.GroupDifference(context.Background(), ctrl, pati, 40, 99)
	require.NoError(t, err)
	second, err := e.GroupDifference(context.Background(), ctrl, pati, 40, 99)
	require.NoError(t, err)

	n := len(ctrl.Regions)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.Equal(t, first.Z.At(i, j), second.Z.At(i, j), "Z (%d,%d)", i, j)
			assert.Equal(t, first.FDRP.At(i, j), second.FDRP.At(i, j), "FDRP (%d,%d)", i, j)
		}
	}
	assert.Equal(t, first.Null, second.Null)
}

func TestGroupDifferenceIdenticalCohorts(t *testing.T) {
	e := calc.New(2)
	ctrl := randomCohort(8, "c", 31)
	pati := randomCohort(8, "p", 31) // same values, different ids

	res, err := e.GroupDifference(context.Background(), ctrl, pati, 60, 7)
	require.NoError(t, err)

	n := len(ctrl.Regions)
	for i := 0; i < n; i++ {
		assert.Equal(t, 1.0, res.FDRP.At(i, i))
		for j := i + 1; j < n; j++ {
			// Zero true difference: the empirical p sits in the bulk of
			// the null, nothing survives correction.
			assert.GreaterOrEqual(t, res.FDRP.At(i, j), 0.05, "edge (%d,%d)", i, j)
			assert.Equal(t, res.FDRP.At(i, j), res.FDRP.At(j, i))
			assert.Equal(t, res.Z.At(i, j), res.Z.At(j, i))
		}
	}

	// Minimum achievable p is 1/(nPerm+1).
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			assert.GreaterOrEqual(t, res.FDRP.At(i, j), 1.0/61.0)
		}
	}
}

func TestGroupDifferenceNullShape(t *testing.T) {
	e := calc.New(2)
	ctrl := randomCohort(7, "c", 41)
	pati := randomCohort(9, "p", 42)

	res, err := e.GroupDifference(context.Background(), ctrl, pati, 25, 3)
	require.NoError(t, err)

	n := len(ctrl.Regions)
	assert.Len(t, res.Null, 25*n*n)
	assert.Equal(t, 25, res.NPerm)
	assert.Len(t, res.NullAt(0, 1, n), 25)
}

func TestGroupDifferenceCancelled(t *testing.T) {
	e := calc.New(1)
	ctrl := randomCohort(8, "c", 51)
	pati := randomCohort(8, "p", 52)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.GroupDifference(ctx, ctrl, pati, 500, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGroupDifferenceRejectsBadPermCount(t *testing.T) {
	e := calc.New(1)
	ctrl := randomCohort(8, "c", 61)
	pati := randomCohort(8, "p", 62)

	_, err := e.GroupDifference(context.Background(), ctrl, pati, 0, 1)
	assert.ErrorIs(t, err, calc.ErrInsufficientData)
}
