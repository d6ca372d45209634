// Package ivf provides inverted-file indexes.
//
// Vectors are partitioned by a k-means coarse quantizer into nlist lists.
// A query scans the nprobe lists whose centroids are closest to it. List
// entries are stored as raw vectors (IVF_FLAT), 8-bit scalar codes (IVF_SQ8)
// or product-quantized residuals (IVF_PQ).
//
// SCANN stores 4-bit product codes by default and, unless with_raw_data is
// false, a copy of the raw vectors. Search collects reorder_k candidates by
// asymmetric distance and re-ranks them exactly.
package ivf

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/annkit/distance"
	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/internal/kmeans"
	"github.com/hupe1980/annkit/quantization"
)

// Algorithm names.
const (
	TypeIVFFlat = "IVF_FLAT"
	TypeIVFSQ8  = "IVF_SQ8"
	TypeIVFPQ   = "IVF_PQ"
	TypeSCANN   = "SCANN"
)

// Default parameters.
const (
	DefaultNList   = 128
	DefaultNProbe  = 8
	DefaultNBits   = 8
	DefaultMaxIter = 25
	DefaultSeed    = 1234

	DefaultSCANNNBits = 4
)

// Kind selects how list entries are stored.
type Kind uint8

const (
	KindFlat Kind = iota
	KindSQ8
	KindPQ
	KindSCANN
)

func (k Kind) String() string {
	switch k {
	case KindFlat:
		return TypeIVFFlat
	case KindSQ8:
		return TypeIVFSQ8
	case KindPQ:
		return TypeIVFPQ
	case KindSCANN:
		return TypeSCANN
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Compile-time check to ensure IVF satisfies the node contract.
var _ index.Node = (*IVF)(nil)

// Options contains configuration options for the IVF index.
type Options struct {
	Kind        Kind
	ElementType index.ElementType
	Version     index.Version

	// Name overrides the algorithm name reported by Type and stored in blobs.
	Name string
}

// DefaultOptions contains the default configuration options for the IVF index.
var DefaultOptions = Options{
	Kind:        KindFlat,
	ElementType: index.Float32,
	Version:     index.CurrentVersion,
}

// IVF is an inverted-file index.
type IVF struct {
	index.Lifecycle

	opts Options

	mu        sync.RWMutex
	metric    distance.Metric
	dim       int
	count     int
	centroids []float32 // nlist*dim
	ids       [][]int64
	vecs      [][]float32 // KindFlat
	codes     [][]byte    // KindSQ8, KindPQ, KindSCANN
	raw       []float32   // KindSCANN, count*dim indexed by id; nil without raw data
	sq        *quantization.ScalarQuantizer
	pq        *quantization.ProductQuantizer
}

// New creates a new, unbuilt IVF index.
func New(optFns ...func(o *Options)) *IVF {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &IVF{opts: opts}
}

func (x *IVF) Type() string {
	if x.opts.Name != "" {
		return x.opts.Name
	}
	return x.opts.Kind.String()
}

func (x *IVF) Capabilities() index.Capabilities {
	return index.Capabilities{RangeSearch: true, Filtering: true}
}

func (x *IVF) Dim() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

func (x *IVF) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.count
}

// NList returns the number of inverted lists.
func (x *IVF) NList() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// Build trains the coarse quantizer and fills the inverted lists.
func (x *IVF) Build(ctx context.Context, data *index.Dataset, cfg index.Config) error {
	if err := x.BeginBuild(); err != nil {
		return err
	}
	return x.EndBuild(x.build(ctx, data, cfg))
}

func (x *IVF) build(ctx context.Context, data *index.Dataset, cfg index.Config) error {
	if err := data.Check(x.opts.ElementType, 0); err != nil {
		return err
	}
	n, dim := data.Rows(), data.Dim()
	if n == 0 {
		return index.ErrEmptyDataset
	}
	metric, err := cfg.MetricType(distance.MetricL2)
	if err != nil {
		return err
	}
	if metric.Binary() {
		return &index.ErrInvalidConfig{Param: "metric_type", Reason: fmt.Sprintf("%s is not supported by %s", metric, x.Type())}
	}

	nlist := min(index.IntOr(cfg.NList, DefaultNList), n)
	seed := cfg.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	rng := rand.New(rand.NewSource(seed))

	var pq *quantization.ProductQuantizer
	if x.opts.Kind == KindPQ || x.opts.Kind == KindSCANN {
		m := cfg.PQM
		if m == 0 {
			m = defaultPQM(dim)
		}
		nbits := DefaultNBits
		if x.opts.Kind == KindSCANN {
			nbits = DefaultSCANNNBits
		}
		pq, err = quantization.NewProductQuantizer(dim, m, index.IntOr(cfg.NBits, nbits))
		if err != nil {
			return &index.ErrInvalidConfig{Param: "m", Reason: err.Error()}
		}
	}

	vectors := data.Vectors(metric == distance.MetricCosine)
	centroids, err := kmeans.Train(ctx, vectors, dim, nlist, index.IntOr(cfg.MaxIter, DefaultMaxIter), rng)
	if err != nil {
		return fmt.Errorf("ivf: train coarse quantizer: %w", err)
	}

	score, err := distance.Provider(metric)
	if err != nil {
		return err
	}
	assign := make([]int, n)
	for i := 0; i < n; i++ {
		assign[i] = kmeans.Nearest(vectors[i*dim:(i+1)*dim], centroids, dim, score)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ids := make([][]int64, nlist)
	for i, l := range assign {
		ids[l] = append(ids[l], int64(i))
	}

	var (
		vecs  [][]float32
		codes [][]byte
		raw   []float32
		sq    *quantization.ScalarQuantizer
	)
	switch x.opts.Kind {
	case KindFlat:
		vecs = make([][]float32, nlist)
		for i, l := range assign {
			vecs[l] = append(vecs[l], vectors[i*dim:(i+1)*dim]...)
		}
	case KindSQ8:
		sq = quantization.NewScalarQuantizer(dim)
		if err := sq.Train(vectors); err != nil {
			return err
		}
		codes = encodeLists(nlist, dim, assign, vectors, func(l int, v []float32, dst []byte) {
			sq.Encode(v, dst)
		}, sq.BytesPerVector())
	case KindPQ, KindSCANN:
		residuals := residualsOf(vectors, centroids, assign, dim, metric)
		if err := pq.Train(ctx, residuals, rng); err != nil {
			return err
		}
		codes = encodeLists(nlist, dim, assign, residuals, func(_ int, v []float32, dst []byte) {
			pq.Encode(v, dst)
		}, pq.BytesPerVector())
		if x.opts.Kind == KindSCANN && (cfg.WithRawData == nil || *cfg.WithRawData) {
			raw = slices.Clone(vectors)
		}
	default:
		return fmt.Errorf("ivf: unknown kind %d", x.opts.Kind)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.metric, x.dim, x.count = metric, dim, n
	x.centroids, x.ids, x.vecs, x.codes, x.raw = centroids, ids, vecs, codes, raw
	x.sq, x.pq = sq, pq
	return nil
}

// residualsOf returns v - centroid for L2, and v itself for similarity metrics.
func residualsOf(vectors, centroids []float32, assign []int, dim int, metric distance.Metric) []float32 {
	out := make([]float32, len(vectors))
	copy(out, vectors)
	if metric != distance.MetricL2 {
		return out
	}
	for i, l := range assign {
		c := centroids[l*dim : (l+1)*dim]
		row := out[i*dim : (i+1)*dim]
		for j := range row {
			row[j] -= c[j]
		}
	}
	return out
}

func encodeLists(nlist, dim int, assign []int, vectors []float32, encode func(l int, v []float32, dst []byte), width int) [][]byte {
	codes := make([][]byte, nlist)
	buf := make([]byte, width)
	for i, l := range assign {
		encode(l, vectors[i*dim:(i+1)*dim], buf)
		codes[l] = append(codes[l], buf...)
	}
	return codes
}

// defaultPQM picks the largest of 16, 8, 4, 2, 1 sub-vectors that divides dim
// into at least two components each.
func defaultPQM(dim int) int {
	for _, m := range []int{16, 8, 4, 2} {
		if dim%m == 0 && dim/m >= 2 {
			return m
		}
	}
	return 1
}
