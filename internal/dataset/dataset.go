// Package dataset holds cohort tables: one row per subject, covariate
// columns first, region-volume columns behind, all numeric. Two tables
// (controls, patients) share one schema per analysis.
package dataset

import (
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"strconv"

	"github.com/gonum/matrix/mat64"
)

// ErrSchema reports missing or mismatched covariate/region columns.
var ErrSchema = errors.New("dataset: schema mismatch")

// Table is an ordered cohort of subjects over a fixed covariate+region schema.
// Data rows follow Subjects; columns are Covas followed by Regions.
type Table struct {
	Subjects []string
	Covas    []string
	Regions  []string
	Data     *mat64.Dense
}

// Row is one subject's values in table column order.
type Row struct {
	Subject string
	Values  []float64
}

// NRows returns the number of subjects.
func (t *Table) NRows() int { return len(t.Subjects) }

// NCols returns the number of value columns (covariates + regions).
func (t *Table) NCols() int { return len(t.Covas) + len(t.Regions) }

// RegionCol returns the Data column index of region r.
func (t *Table) RegionCol(r int) int { return len(t.Covas) + r }

// Row returns a copy of subject i's values.
func (t *Table) Row(i int) Row {
	vals := make([]float64, t.NCols())
	for j := range vals {
		vals[j] = t.Data.At(i, j)
	}
	return Row{Subject: t.Subjects[i], Values: vals}
}

// Mix returns a fresh table holding every row of t plus one appended
// subject. t is left untouched; the result shares no storage with it.
func (t *Table) Mix(r Row) (*Table, error) {
	if len(r.Values) != t.NCols() {
		return nil, fmt.Errorf("%w: subject %s has %d values, table has %d columns",
			ErrSchema, r.Subject, len(r.Values), t.NCols())
	}
	rows, cols := t.NRows(), t.NCols()
	data := make([]float64, (rows+1)*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data[i*cols+j] = t.Data.At(i, j)
		}
	}
	copy(data[rows*cols:], r.Values)
	return &Table{
		Subjects: append(append([]string{}, t.Subjects...), r.Subject),
		Covas:    t.Covas,
		Regions:  t.Regions,
		Data:     mat64.NewDense(rows+1, cols, data),
	}, nil
}

// Concat returns a fresh table with the rows of a followed by the rows of b.
func Concat(a, b *Table) (*Table, error) {
	if err := SameSchema(a, b); err != nil {
		return nil, err
	}
	rows, cols := a.NRows()+b.NRows(), a.NCols()
	data := make([]float64, rows*cols)
	for i := 0; i < a.NRows(); i++ {
		for j := 0; j < cols; j++ {
			data[i*cols+j] = a.Data.At(i, j)
		}
	}
	for i := 0; i < b.NRows(); i++ {
		for j := 0; j < cols; j++ {
			data[(a.NRows()+i)*cols+j] = b.Data.At(i, j)
		}
	}
	return &Table{
		Subjects: append(append([]string{}, a.Subjects...), b.Subjects...),
		Covas:    a.Covas,
		Regions:  a.Regions,
		Data:     mat64.NewDense(rows, cols, data),
	}, nil
}

// Select returns a fresh table holding the given rows of t, in order.
func (t *Table) Select(rows []int) *Table {
	cols := t.NCols()
	data := make([]float64, len(rows)*cols)
	subs := make([]string, len(rows))
	for i, r := range rows {
		subs[i] = t.Subjects[r]
		for j := 0; j < cols; j++ {
			data[i*cols+j] = t.Data.At(r, j)
		}
	}
	return &Table{Subjects: subs, Covas: t.Covas, Regions: t.Regions,
		Data: mat64.NewDense(len(rows), cols, data)}
}

// SameSchema verifies that two tables carry identical covariate and region
// columns in identical order.
func SameSchema(a, b *Table) error {
	if len(a.Covas) != len(b.Covas) || len(a.Regions) != len(b.Regions) {
		return fmt.Errorf("%w: %d+%d columns vs %d+%d",
			ErrSchema, len(a.Covas), len(a.Regions), len(b.Covas), len(b.Regions))
	}
	for i := range a.Covas {
		if a.Covas[i] != b.Covas[i] {
			return fmt.Errorf("%w: covariate %q vs %q at position %d",
				ErrSchema, a.Covas[i], b.Covas[i], i)
		}
	}
	for i := range a.Regions {
		if a.Regions[i] != b.Regions[i] {
			return fmt.Errorf("%w: region %q vs %q at position %d",
				ErrSchema, a.Regions[i], b.Regions[i], i)
		}
	}
	return nil
}

// Checksum hashes subjects and values; perturbation calls must leave it unchanged.
func (t *Table) Checksum() uint64 {
	h := fnv.New64a()
	for _, s := range t.Subjects {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	var buf [8]byte
	rows, cols := t.NRows(), t.NCols()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(t.Data.At(i, j)))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

// ReadCohort loads one of the loader's pre-filtered cohort files: a CSV whose
// first column is the subject identifier, selecting the named covariate and
// region columns in the given order. Every selected cell must parse as float.
func ReadCohort(path string, covas, regions []string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s has no data rows", ErrSchema, path)
	}

	header := records[0]
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[name] = i
	}
	want := append(append([]string{}, covas...), regions...)
	indices := make([]int, len(want))
	for i, name := range want {
		idx, ok := colIdx[name]
		if !ok {
			return nil, fmt.Errorf("%w: column %q not found in %s", ErrSchema, name, path)
		}
		indices[i] = idx
	}

	rows := len(records) - 1
	subs := make([]string, rows)
	data := make([]float64, rows*len(want))
	for i, rec := range records[1:] {
		subs[i] = rec[0]
		for j, idx := range indices {
			if idx >= len(rec) {
				return nil, fmt.Errorf("%w: row %s is short in %s", ErrSchema, subs[i], path)
			}
			v, err := strconv.ParseFloat(rec[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: subject %s column %q: %v",
					ErrSchema, subs[i], want[j], err)
			}
			data[i*len(want)+j] = v
		}
	}

	return &Table{
		Subjects: subs,
		Covas:    append([]string{}, covas...),
		Regions:  append([]string{}, regions...),
		Data:     mat64.NewDense(rows, len(want), data),
	}, nil
}
