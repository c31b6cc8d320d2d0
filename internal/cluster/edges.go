// Package cluster aggregates per-subject significant edges into a
// population-level ranking and partitions patients into subtypes over the
// selected edges.
package cluster

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gonum/matrix/mat64"

	"github.com/neuroscn/idscn/internal/calc"
)

// ErrDegenerateCluster reports a clustering request with too few samples or
// too few selected edges to partition.
var ErrDegenerateCluster = errors.New("cluster: degenerate clustering input")

// Edge is an unordered pair of distinct regions, stored with I > J.
type Edge struct {
	I, J int
}

// RankGroup holds every edge sharing one significance count.
type RankGroup struct {
	Count int
	Edges []Edge
}

// Aggregate recomputes each subject's FDR-corrected p matrix from its Z
// matrix and counts, per edge, how many subjects are significant below 0.05.
// It returns the symmetric count matrix and the unique edges of the strict
// lower triangle grouped by count, descending; self-edges are excluded.
func Aggregate(zs []*mat64.Dense) (*mat64.Dense, []RankGroup, error) {
	if len(zs) == 0 {
		return nil, nil, fmt.Errorf("%w: no subject Z matrices", ErrDegenerateCluster)
	}
	n, _ := zs[0].Dims()
	count := mat64.NewDense(n, n, nil)

	for s, z := range zs {
		zn, _ := z.Dims()
		if zn != n {
			return nil, nil, fmt.Errorf("%w: subject %d matrix is %dx%d, expected %dx%d",
				ErrDegenerateCluster, s, zn, zn, n, n)
		}
		_, fdr := calc.PValues(z)
		for i := 1; i < n; i++ {
			for j := 0; j < i; j++ {
				if fdr.At(i, j) < 0.05 {
					count.Set(i, j, count.At(i, j)+1)
					count.Set(j, i, count.At(j, i)+1)
				}
			}
		}
	}

	byCount := make(map[int][]Edge)
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			c := int(count.At(i, j))
			byCount[c] = append(byCount[c], Edge{I: i, J: j})
		}
	}
	groups := make([]RankGroup, 0, len(byCount))
	for c, edges := range byCount {
		groups = append(groups, RankGroup{Count: c, Edges: edges})
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].Count > groups[b].Count })
	for _, g := range groups {
		sort.Slice(g.Edges, func(a, b int) bool {
			if g.Edges[a].I != g.Edges[b].I {
				return g.Edges[a].I < g.Edges[b].I
			}
			return g.Edges[a].J < g.Edges[b].J
		})
	}
	return count, groups, nil
}

// SelectTop walks rank groups from the highest count downward, taking whole
// groups until at least target edges are included; the final group is never
// truncated, so the result may exceed target. Groups with a zero count carry
// no significance signal and are never selected.
func SelectTop(groups []RankGroup, target int) ([]Edge, error) {
	if target < 1 {
		return nil, fmt.Errorf("%w: target edge count %d", ErrDegenerateCluster, target)
	}
	var selected []Edge
	for _, g := range groups {
		if g.Count == 0 {
			break
		}
		selected = append(selected, g.Edges...)
		if len(selected) >= target {
			break
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: no edge is significant for any subject", ErrDegenerateCluster)
	}
	return selected, nil
}

// Features builds the clustering feature matrix: one row per patient, one
// column per selected edge, holding 1 − perturbedPCN[edge] (the patient's
// dissimilarity at that edge in their own perturbed network).
func Features(perturbed []*mat64.Dense, edges []Edge) *mat64.Dense {
	feat := mat64.NewDense(len(perturbed), len(edges), nil)
	for i, pcn := range perturbed {
		for j, e := range edges {
			feat.Set(i, j, 1.0-pcn.At(e.I, e.J))
		}
	}
	return feat
}
