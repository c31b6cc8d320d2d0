package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gonum/matrix/mat64"
)

const (
	kMin     = 2
	kMax     = 5
	restarts = 100
	maxIter  = 100
)

// Subtype partitions the feature rows into k clusters for each candidate
// k in {2..5} (capped below the sample count), running 100 seeded k-means
// restarts per k to damp initialization sensitivity, and keeps the k with
// the best mean silhouette score. rng drives every restart, so a fixed seed
// reproduces the assignment exactly.
func Subtype(features *mat64.Dense, rng *rand.Rand) (k int, labels []int, score float64, err error) {
	rows, cols := features.Dims()
	if cols < 1 {
		return 0, nil, 0, fmt.Errorf("%w: no selected edges", ErrDegenerateCluster)
	}
	if rows < kMin {
		return 0, nil, 0, fmt.Errorf("%w: %d patients, need at least %d", ErrDegenerateCluster, rows, kMin)
	}

	best := -2.0
	for cand := kMin; cand <= kMax && cand <= rows; cand++ {
		candLabels := kMeans(features, cand, rng)
		s := silhouette(features, candLabels, cand)
		if s > best {
			best = s
			k = cand
			labels = candLabels
		}
	}
	return k, labels, best, nil
}

// kMeans runs Lloyd iterations from `restarts` random initializations and
// returns the assignment with the lowest within-cluster sum of squares.
func kMeans(data *mat64.Dense, k int, rng *rand.Rand) []int {
	rows, _ := data.Dims()
	bestInertia := math.Inf(1)
	var bestLabels []int

	for r := 0; r < restarts; r++ {
		labels, inertia := lloyd(data, k, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			bestLabels = labels
		}
	}
	if bestLabels == nil {
		bestLabels = make([]int, rows)
	}
	return bestLabels
}

func lloyd(data *mat64.Dense, k int, rng *rand.Rand) ([]int, float64) {
	rows, cols := data.Dims()

	// Forgy init: k distinct rows as starting centers.
	perm := rng.Perm(rows)
	centers := make([][]float64, k)
	for c := 0; c < k; c++ {
		centers[c] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			centers[c][j] = data.At(perm[c], j)
		}
	}

	labels := make([]int, rows)
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := 0; i < rows; i++ {
			bestC, bestD := 0, math.Inf(1)
			for c := 0; c < k; c++ {
				d := sqDist(data, i, centers[c])
				if d < bestD {
					bestD = d
					bestC = c
				}
			}
			if labels[i] != bestC {
				labels[i] = bestC
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		for c := range centers {
			for j := range centers[c] {
				centers[c][j] = 0
			}
		}
		for i := 0; i < rows; i++ {
			c := labels[i]
			counts[c]++
			for j := 0; j < cols; j++ {
				centers[c][j] += data.At(i, j)
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Re-seed an emptied cluster from a random row.
				pick := rng.Intn(rows)
				for j := 0; j < cols; j++ {
					centers[c][j] = data.At(pick, j)
				}
				continue
			}
			for j := 0; j < cols; j++ {
				centers[c][j] /= float64(counts[c])
			}
		}
	}

	var inertia float64
	for i := 0; i < rows; i++ {
		inertia += sqDist(data, i, centers[labels[i]])
	}
	return labels, inertia
}

func sqDist(data *mat64.Dense, row int, center []float64) float64 {
	var acc float64
	for j := range center {
		d := data.At(row, j) - center[j]
		acc += d * d
	}
	return acc
}

// silhouette returns the mean silhouette coefficient of the assignment:
// per sample, (b−a)/max(a,b) with a the mean distance to its own cluster
// and b the smallest mean distance to any other cluster. Samples in
// singleton clusters score 0.
func silhouette(data *mat64.Dense, labels []int, k int) float64 {
	rows, cols := data.Dims()
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}

	dist := func(a, b int) float64 {
		var acc float64
		for j := 0; j < cols; j++ {
			d := data.At(a, j) - data.At(b, j)
			acc += d * d
		}
		return math.Sqrt(acc)
	}

	var total float64
	for i := 0; i < rows; i++ {
		if sizes[labels[i]] <= 1 {
			continue
		}
		sums := make([]float64, k)
		for o := 0; o < rows; o++ {
			if o == i {
				continue
			}
			sums[labels[o]] += dist(i, o)
		}
		a := sums[labels[i]] / float64(sizes[labels[i]]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == labels[i] || sizes[c] == 0 {
				continue
			}
			if m := sums[c] / float64(sizes[c]); m < b {
				b = m
			}
		}
		if math.IsInf(b, 1) {
			continue // every other cluster emptied out
		}
		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(rows)
}
