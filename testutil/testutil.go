package testutil

import (
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annkit/distance"
	"github.com/hupe1980/annkit/index"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// UniformVectors returns num*dim row-major values in [0, 1).
func (r *RNG) UniformVectors(num, dim int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float32, num*dim)
	for i := range out {
		out[i] = r.rand.Float32()
	}
	return out
}

// ClusteredVectors generates row-major vectors with Gaussian noise around
// clusters random unit centroids. Row i belongs to cluster i%clusters.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	centroids := make([]float32, clusters*dim)
	for i := range centroids {
		centroids[i] = float32(r.rand.NormFloat64())
	}
	for c := 0; c < clusters; c++ {
		distance.NormalizeL2InPlace(centroids[c*dim : (c+1)*dim])
	}

	data := make([]float32, num*dim)
	for i := 0; i < num; i++ {
		c := centroids[(i%clusters)*dim : (i%clusters+1)*dim]
		for j := 0; j < dim; j++ {
			data[i*dim+j] = c[j] + float32(r.rand.NormFloat64())*spread
		}
	}
	return data
}

// BinaryVectors returns num packed vectors of dim bits.
func (r *RNG) BinaryVectors(num, dim int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, num*dim/8)
	r.rand.Read(out)
	return out
}

// Float32Dataset wraps data or fails the test.
func Float32Dataset(t testing.TB, dim int, data []float32) *index.Dataset {
	t.Helper()
	ds, err := index.NewFloat32(dim, data)
	require.NoError(t, err)
	return ds
}

// ConvertDataset narrows data to et or fails the test.
func ConvertDataset(t testing.TB, et index.ElementType, dim int, data []float32) *index.Dataset {
	t.Helper()
	ds, err := index.Convert(et, dim, data)
	require.NoError(t, err)
	return ds
}

// BruteForceSearch returns the ids of the k nearest rows of data to query under
// squared L2, nearest first.
func BruteForceSearch(data []float32, dim int, query []float32, k int) []int64 {
	n := len(data) / dim
	ids := make([]int64, n)
	dists := make([]float32, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(i)
		dists[i] = distance.SquaredL2(query, data[i*dim:(i+1)*dim])
	}
	sort.SliceStable(ids, func(a, b int) bool { return dists[ids[a]] < dists[ids[b]] })
	if k < len(ids) {
		ids = ids[:k]
	}
	return ids
}

// ComputeRecall computes recall@k by comparing approximate ids against ground truth.
// Padding ids (-1) never count as hits.
func ComputeRecall(groundTruth, approximate []int64) float64 {
	if len(groundTruth) == 0 {
		return 1.0
	}

	truthSet := make(map[int64]struct{}, len(groundTruth))
	for _, id := range groundTruth {
		truthSet[id] = struct{}{}
	}

	hits := 0
	for _, id := range approximate {
		if _, ok := truthSet[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(groundTruth))
}
