package index

import (
	"context"
	"math"

	"github.com/hupe1980/annkit/distance"
)

// Node is the capability contract every index implementation satisfies.
//
// Build and Deserialize are the two ways into the Built state, and either may
// be called once. Close releases every resource held by the node, including
// an accelerator context, and may be called from any state.
type Node interface {
	// Type returns the algorithm name the node implements, e.g. "IVF_FLAT".
	Type() string
	Capabilities() Capabilities
	State() State

	// Dim returns the vector dimension, or 0 before the node is built.
	Dim() int
	// Count returns the number of indexed vectors.
	Count() int

	Build(ctx context.Context, data *Dataset, cfg Config) error
	Search(ctx context.Context, queries *Dataset, topK int, cfg Config, filter *Bitset) (*Neighbors, error)
	RangeSearch(ctx context.Context, queries *Dataset, cfg Config, filter *Bitset) (*RangeResult, error)

	Serialize() (Blob, error)
	Deserialize(blob Blob) error

	Close() error
}

// Capabilities describes optional behavior of a Node.
type Capabilities struct {
	// Accelerated nodes execute on a device context.
	Accelerated bool
	// RangeSearch is true when RangeSearch is implemented.
	RangeSearch bool
	// Filtering is true when Search honors the exclusion bitset.
	Filtering bool
}

// Neighbors holds the top-k results of a batch of queries in row-major order.
// Missing results are padded with id -1.
type Neighbors struct {
	K         int
	IDs       []int64
	Distances []float32
}

// NewNeighbors allocates results for nq queries, padded for metric m.
func NewNeighbors(nq, k int, m distance.Metric) *Neighbors {
	n := &Neighbors{
		K:         k,
		IDs:       make([]int64, nq*k),
		Distances: make([]float32, nq*k),
	}
	pad := m.FromScore(float32(math.Inf(1)))
	for i := range n.IDs {
		n.IDs[i] = -1
		n.Distances[i] = pad
	}
	return n
}

// Queries returns the number of query rows.
func (n *Neighbors) Queries() int {
	if n.K == 0 {
		return 0
	}
	return len(n.IDs) / n.K
}

// Row returns the ids and distances of query q.
func (n *Neighbors) Row(q int) ([]int64, []float32) {
	lo, hi := q*n.K, (q+1)*n.K
	return n.IDs[lo:hi:hi], n.Distances[lo:hi:hi]
}

// RangeResult holds variable-length results per query. The results of query q
// are IDs[Lims[q]:Lims[q+1]].
type RangeResult struct {
	Lims      []int
	IDs       []int64
	Distances []float32
}

// Row returns the ids and distances of query q.
func (r *RangeResult) Row(q int) ([]int64, []float32) {
	lo, hi := r.Lims[q], r.Lims[q+1]
	return r.IDs[lo:hi:hi], r.Distances[lo:hi:hi]
}

// NewRangeResult concatenates per-query rows.
func NewRangeResult(ids [][]int64, dists [][]float32) *RangeResult {
	r := &RangeResult{Lims: make([]int, len(ids)+1)}
	for q := range ids {
		r.Lims[q+1] = r.Lims[q] + len(ids[q])
		r.IDs = append(r.IDs, ids[q]...)
		r.Distances = append(r.Distances, dists[q]...)
	}
	return r
}

// RangeBounds validates Radius and RangeFilter for metric m and returns a
// predicate on reported distances.
//
// For lower-is-better metrics a distance d matches when
// RangeFilter <= d < Radius. For similarity metrics it matches when
// Radius < d <= RangeFilter.
func RangeBounds(cfg Config, m distance.Metric) (func(d float32) bool, error) {
	if cfg.Radius == nil {
		return nil, &ErrInvalidConfig{Param: "radius", Reason: "required for range search"}
	}
	radius := *cfg.Radius
	if m.HigherIsBetter() {
		hi := float32(math.Inf(1))
		if cfg.RangeFilter != nil {
			hi = *cfg.RangeFilter
			if hi <= radius {
				return nil, &ErrInvalidConfig{Param: "range_filter", Reason: "must be greater than radius"}
			}
		}
		return func(d float32) bool { return d > radius && d <= hi }, nil
	}
	lo := float32(math.Inf(-1))
	if cfg.RangeFilter != nil {
		lo = *cfg.RangeFilter
		if lo >= radius {
			return nil, &ErrInvalidConfig{Param: "range_filter", Reason: "must be less than radius"}
		}
	}
	return func(d float32) bool { return d >= lo && d < radius }, nil
}
