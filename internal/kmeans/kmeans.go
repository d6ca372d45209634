package kmeans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/hupe1980/annkit/distance"
)

// ErrNotEnoughVectors is returned when fewer vectors than clusters are given.
var ErrNotEnoughVectors = errors.New("kmeans: fewer training vectors than clusters")

// Train learns k centroids from the given vectors using Lloyd's algorithm
// with squared L2 distance. It returns the flattened centroids (k * dim).
//
// The result is deterministic for a given rng state. Train checks ctx once
// per iteration.
func Train(ctx context.Context, vectors []float32, dim, k, maxIter int, rng *rand.Rand) ([]float32, error) {
	if dim <= 0 || k <= 0 {
		return nil, fmt.Errorf("kmeans: invalid dim %d or k %d", dim, k)
	}
	n := len(vectors) / dim
	if n < k {
		return nil, fmt.Errorf("%w: %d < %d", ErrNotEnoughVectors, n, k)
	}

	centroids := make([]float32, k*dim)

	// Initialize centroids from distinct random data points
	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		copy(centroids[i*dim:(i+1)*dim], vectors[perm[i]*dim:(perm[i]+1)*dim])
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float32, k*dim)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changed := false

		// Assignment step
		for i := 0; i < n; i++ {
			best := Nearest(vectors[i*dim:(i+1)*dim], centroids, dim, distance.SquaredL2)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		if !changed {
			break
		}

		// Update step
		clear(sums)
		clear(counts)

		for i := 0; i < n; i++ {
			cluster := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			for d := 0; d < dim; d++ {
				sums[cluster*dim+d] += vec[d]
			}
			counts[cluster]++
		}

		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				scale := 1.0 / float32(counts[j])
				for d := 0; d < dim; d++ {
					centroids[j*dim+d] = sums[j*dim+d] * scale
				}
			} else {
				// Re-seed empty cluster with a random point
				idx := rng.Intn(n)
				copy(centroids[j*dim:(j+1)*dim], vectors[idx*dim:(idx+1)*dim])
			}
		}
	}

	return centroids, nil
}

// Nearest returns the index of the centroid closest to vec under fn.
func Nearest(vec, centroids []float32, dim int, fn distance.Func) int {
	best := -1
	minDist := float32(math.MaxFloat32)
	for j := 0; j < len(centroids)/dim; j++ {
		d := fn(vec, centroids[j*dim:(j+1)*dim])
		if best < 0 || d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}

type centroidDist struct {
	id   int
	dist float32
}

// Closest returns the indices of the n centroids closest to query under fn,
// best first.
func Closest(query, centroids []float32, dim, n int, fn distance.Func) []int {
	k := len(centroids) / dim
	if n > k {
		n = k
	}

	dists := make([]centroidDist, k)
	for i := 0; i < k; i++ {
		dists[i] = centroidDist{id: i, dist: fn(query, centroids[i*dim:(i+1)*dim])}
	}

	sort.Slice(dists, func(i, j int) bool {
		if dists[i].dist != dists[j].dist {
			return dists[i].dist < dists[j].dist
		}
		return dists[i].id < dists[j].id
	})

	result := make([]int, n)
	for i := 0; i < n; i++ {
		result[i] = dists[i].id
	}
	return result
}
