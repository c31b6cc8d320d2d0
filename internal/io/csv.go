// Package io persists the analysis output layout: labeled region-by-region
// matrices, name lists, the per-subject significance count table, the
// cluster result and the per-edge significance export.
package io

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gonum/matrix/mat64"
)

// WriteLabeledMatrix writes a square matrix as CSV with the region names as
// both header row and index column, the layout every downstream reader of
// this tool expects.
func WriteLabeledMatrix(path string, regions []string, m *mat64.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("io: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, ",%s\n", strings.Join(regions, ","))

	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		w.WriteString(regions[i])
		for j := 0; j < cols; j++ {
			w.WriteByte(',')
			w.WriteString(strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}

// ReadLabeledMatrix reads a matrix written by WriteLabeledMatrix, returning
// the region names and the values.
func ReadLabeledMatrix(path string) ([]string, *mat64.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("io: open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("io: parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("io: %s holds no matrix rows", path)
	}

	regions := records[0][1:]
	n := len(regions)
	m := mat64.NewDense(n, n, nil)
	for i, rec := range records[1:] {
		if len(rec) != n+1 {
			return nil, nil, fmt.Errorf("io: %s row %d has %d fields, expected %d", path, i+1, len(rec), n+1)
		}
		for j := 0; j < n; j++ {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("io: %s row %d col %d: %w", path, i+1, j+1, err)
			}
			m.Set(i, j, v)
		}
	}
	return regions, m, nil
}

// WriteNames writes a newline-delimited name list (covas.txt / regions.txt).
func WriteNames(path string, names []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("io: create %s: %w", path, err)
	}
	defer f.Close()
	for _, name := range names {
		if _, err := fmt.Fprintln(f, name); err != nil {
			return err
		}
	}
	return nil
}

// ReadNames reads a newline-delimited name list, skipping blank lines.
func ReadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("io: open %s: %w", path, err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			names = append(names, line)
		}
	}
	return names, sc.Err()
}

// WriteCountTable writes count_significant.csv: subject identifier and the
// number of FDR-significant edges per subject.
func WriteCountTable(path string, subjects []string, counts []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("io: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.WriteString("subject,n\n")
	for i, s := range subjects {
		fmt.Fprintf(w, "%s,%d\n", s, counts[i])
	}
	return w.Flush()
}

// WriteClusterResult writes cluster_result.csv: one ragged column of member
// identifiers per cluster, followed by the summary rows the reference layout
// appends (edge count, cluster count, per-cluster sizes, silhouette score).
func WriteClusterResult(path string, clusters [][]string, edgeCount int, score float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("io: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	header := make([]string, len(clusters))
	sizes := make([]string, len(clusters))
	depth := 0
	for i, c := range clusters {
		header[i] = strconv.Itoa(i)
		sizes[i] = strconv.Itoa(len(c))
		if len(c) > depth {
			depth = len(c)
		}
	}
	w.WriteString(strings.Join(header, ",") + "\n")
	for row := 0; row < depth; row++ {
		cells := make([]string, len(clusters))
		for i, c := range clusters {
			if row < len(c) {
				cells[i] = c[row]
			}
		}
		w.WriteString(strings.Join(cells, ",") + "\n")
	}
	fmt.Fprintf(w, "Number of connections to cluster,%d\n", edgeCount)
	fmt.Fprintf(w, "Number of cluster,%d\n", len(clusters))
	fmt.Fprintf(w, "Clustering result,%s\n", strings.Join(sizes, "/"))
	fmt.Fprintf(w, "Silhouette score,%s\n", strconv.FormatFloat(score, 'g', -1, 64))
	return w.Flush()
}

// WriteSigExport writes sig_<N>.csv: one row per subject, one column per
// selected edge named "<regionA>--<regionB>", cells holding that subject's
// Z value at the edge.
func WriteSigExport(path string, edgeNames []string, subjects []string, zAtEdges [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("io: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.WriteString("Subject," + strings.Join(edgeNames, ",") + "\n")
	for i, s := range subjects {
		w.WriteString(s)
		for _, v := range zAtEdges[i] {
			w.WriteByte(',')
			w.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}
