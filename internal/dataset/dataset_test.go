package dataset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gonum/matrix/mat64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroscn/idscn/internal/dataset"
)

func smallTable() *dataset.Table {
	return &dataset.Table{
		Subjects: []string{"sub-001", "sub-002", "sub-003"},
		Covas:    []string{"age"},
		Regions:  []string{"r1", "r2"},
		Data: mat64.NewDense(3, 3, []float64{
			20, 1.0, 2.1,
			25, 2.0, 3.9,
			30, 3.0, 6.2,
		}),
	}
}

func TestMixAppendsWithoutMutating(t *testing.T) {
	tbl := smallTable()
	before := tbl.Checksum()

	mixed, err := tbl.Mix(dataset.Row{Subject: "pat-001", Values: []float64{22, 1.5, 9.0}})
	require.NoError(t, err)

	assert.Equal(t, 4, mixed.NRows())
	assert.Equal(t, "pat-001", mixed.Subjects[3])
	assert.Equal(t, 9.0, mixed.Data.At(3, 2))

	// Writes into the mixed copy must never reach the original.
	mixed.Data.Set(0, 0, -1)
	assert.Equal(t, before, tbl.Checksum())
}

func TestMixRejectsShortRow(t *testing.T) {
	tbl := smallTable()
	_, err := tbl.Mix(dataset.Row{Subject: "pat-001", Values: []float64{22, 1.5}})
	assert.ErrorIs(t, err, dataset.ErrSchema)
	assert.Contains(t, err.Error(), "pat-001")
}

func TestConcatAndSelect(t *testing.T) {
	a := smallTable()
	b := smallTable()
	b.Subjects = []string{"sub-004", "sub-005", "sub-006"}

	pooled, err := dataset.Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, 6, pooled.NRows())
	assert.Equal(t, "sub-004", pooled.Subjects[3])
	assert.Equal(t, a.Data.At(2, 1), pooled.Data.At(2, 1))

	sel := pooled.Select([]int{5, 0})
	assert.Equal(t, []string{"sub-006", "sub-001"}, sel.Subjects)
	assert.Equal(t, pooled.Data.At(5, 2), sel.Data.At(0, 2))
}

func TestSameSchemaMismatch(t *testing.T) {
	a := smallTable()
	b := smallTable()
	b.Regions = []string{"r1", "other"}
	err := dataset.SameSchema(a, b)
	assert.ErrorIs(t, err, dataset.ErrSchema)
	assert.Contains(t, err.Error(), "other")
}

func TestReadCohort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "controls.csv")
	csv := "subject,age,sex,r1,r2\n" +
		"sub-001,20,1,1.0,2.1\n" +
		"sub-002,25,2,2.0,3.9\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	tbl, err := dataset.ReadCohort(path, []string{"age"}, []string{"r2", "r1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sub-001", "sub-002"}, tbl.Subjects)
	// Columns follow the requested order, not the file order.
	assert.Equal(t, 2.1, tbl.Data.At(0, 1))
	assert.Equal(t, 1.0, tbl.Data.At(0, 2))
}

func TestReadCohortMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "controls.csv")
	require.NoError(t, os.WriteFile(path, []byte("subject,age\nsub-001,20\n"), 0o644))

	_, err := dataset.ReadCohort(path, []string{"age"}, []string{"r1"})
	assert.ErrorIs(t, err, dataset.ErrSchema)
	assert.Contains(t, err.Error(), "r1")
}

func TestChecksumSensitivity(t *testing.T) {
	a := smallTable()
	b := smallTable()
	assert.Equal(t, a.Checksum(), b.Checksum())
	b.Data.Set(1, 1, 2.0001)
	assert.NotEqual(t, a.Checksum(), b.Checksum())
}
