// Package hnsw provides a graph index backed by github.com/coder/hnsw.
//
// Float16 and BFloat16 inputs are widened to float32 before insertion.
// Search honors the exclusion bitset by widening the candidate list. Range
// search is not supported.
package hnsw

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/coder/hnsw"

	"github.com/hupe1980/annkit/distance"
	"github.com/hupe1980/annkit/index"
)

// TypeHNSW is the algorithm name.
const TypeHNSW = "HNSW"

// Default parameters.
const (
	DefaultM              = 16
	DefaultEfConstruction = 200
	DefaultEf             = 64
	DefaultSeed           = 1234
)

// negDotName is the name under which the inner product distance is
// registered so that exported graphs can be imported again.
const negDotName = "annkit_neg_dot"

func negDot(a, b []float32) float32 { return -distance.Dot(a, b) }

func init() {
	hnsw.RegisterDistanceFunc(negDotName, negDot)
}

// Compile-time check to ensure HNSW satisfies the node contract.
var _ index.Node = (*HNSW)(nil)

// Options contains configuration options for the HNSW index.
type Options struct {
	ElementType index.ElementType
	Version     index.Version
}

// DefaultOptions contains the default configuration options for the HNSW index.
var DefaultOptions = Options{
	ElementType: index.Float32,
	Version:     index.CurrentVersion,
}

// HNSW is a hierarchical navigable small world graph index.
type HNSW struct {
	index.Lifecycle

	opts Options

	// mu guards graph. A search that changes the graph's ef holds it
	// exclusively and restores ef before releasing it.
	mu     sync.RWMutex
	graph  *hnsw.Graph[int64]
	ef     int
	metric distance.Metric
	score  distance.Func
	dim    int
}

// New creates a new, unbuilt HNSW index.
func New(optFns ...func(o *Options)) *HNSW {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &HNSW{opts: opts}
}

func (h *HNSW) Type() string { return TypeHNSW }

func (h *HNSW) Capabilities() index.Capabilities {
	return index.Capabilities{Filtering: true}
}

func (h *HNSW) Dim() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dim
}

func (h *HNSW) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.graph == nil {
		return 0
	}
	return h.graph.Len()
}

func graphDistance(m distance.Metric) (hnsw.DistanceFunc, error) {
	switch m {
	case distance.MetricL2:
		return hnsw.EuclideanDistance, nil
	case distance.MetricCosine:
		return hnsw.CosineDistance, nil
	case distance.MetricIP:
		return negDot, nil
	default:
		return nil, &index.ErrInvalidConfig{Param: "metric_type", Reason: fmt.Sprintf("%s is not supported by %s", m, TypeHNSW)}
	}
}

// Build inserts every row into a new graph.
func (h *HNSW) Build(ctx context.Context, data *index.Dataset, cfg index.Config) error {
	if err := h.BeginBuild(); err != nil {
		return err
	}
	return h.EndBuild(h.build(ctx, data, cfg))
}

func (h *HNSW) build(ctx context.Context, data *index.Dataset, cfg index.Config) error {
	if err := data.Check(h.opts.ElementType, 0); err != nil {
		return err
	}
	if data.Rows() == 0 {
		return index.ErrEmptyDataset
	}
	metric, err := cfg.MetricType(distance.MetricL2)
	if err != nil {
		return err
	}
	dist, err := graphDistance(metric)
	if err != nil {
		return err
	}
	score, err := distance.Provider(metric)
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	g := hnsw.NewGraph[int64]()
	g.Distance = dist
	g.M = index.IntOr(cfg.HNSWM, DefaultM)
	g.EfSearch = index.IntOr(cfg.EfConstruction, DefaultEfConstruction)
	g.Rng = rand.New(rand.NewSource(seed))

	dim := data.Dim()
	vectors := data.Vectors(false)
	for i := 0; i < data.Rows(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		g.Add(hnsw.MakeNode(int64(i), vectors[i*dim:(i+1)*dim:(i+1)*dim]))
	}
	g.EfSearch = index.IntOr(cfg.Ef, DefaultEf)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph, h.ef, h.metric, h.score, h.dim = g, g.EfSearch, metric, score, dim
	return nil
}

// Search walks the graph once per query row.
func (h *HNSW) Search(ctx context.Context, queries *index.Dataset, topK int, cfg index.Config, filter *index.Bitset) (*index.Neighbors, error) {
	if err := index.CheckK(queries, topK); err != nil {
		return nil, err
	}

	unlock := h.lockForEf(cfg.Ef)
	defer unlock()

	if err := h.Ready(); err != nil {
		return nil, err
	}
	if err := queries.Check(h.opts.ElementType, h.dim); err != nil {
		return nil, err
	}

	// Excluded ids are dropped after the walk, so ask for that many more.
	want := min(topK+int(filter.Count()), h.graph.Len())

	res := index.NewNeighbors(queries.Rows(), topK, h.metric)
	err := index.ForEachQuery(ctx, queries.Rows(), cfg.Parallelism, func(_ context.Context, q int) error {
		query := queries.Row(q, nil)
		top := index.NewTopK(topK)
		for _, n := range h.graph.Search(query, want) {
			if !filter.Excludes(n.Key) {
				top.Push(n.Key, h.score(query, n.Value))
			}
		}
		ids, dists := res.Row(q)
		top.Fill(ids, dists, h.metric.FromScore)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// lockForEf takes the read lock, or the write lock when a per-call ef differs
// from the index's own. In the latter case unlock puts the index ef back.
func (h *HNSW) lockForEf(ef int) (unlock func()) {
	h.mu.RLock()
	if ef <= 0 || h.graph == nil || h.ef == ef {
		return h.mu.RUnlock
	}
	h.mu.RUnlock()

	h.mu.Lock()
	if h.graph == nil {
		return h.mu.Unlock
	}
	h.graph.EfSearch = ef
	return func() {
		h.graph.EfSearch = h.ef
		h.mu.Unlock()
	}
}

// RangeSearch is not supported.
func (h *HNSW) RangeSearch(context.Context, *index.Dataset, index.Config, *index.Bitset) (*index.RangeResult, error) {
	return nil, fmt.Errorf("%w: %s range search", index.ErrUnsupported, TypeHNSW)
}

// Serialize exports the graph after a one byte metric header.
func (h *HNSW) Serialize() (index.Blob, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if err := h.Ready(); err != nil {
		return index.Blob{}, err
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(h.metric))
	if err := h.graph.Export(&buf); err != nil {
		return index.Blob{}, fmt.Errorf("hnsw export: %w", err)
	}
	return index.Blob{
		Type:        TypeHNSW,
		ElementType: h.opts.ElementType,
		Version:     h.opts.Version,
		Dim:         h.dim,
		Count:       h.graph.Len(),
		Data:        buf.Bytes(),
	}, nil
}

// Deserialize imports a graph produced by Serialize.
func (h *HNSW) Deserialize(blob index.Blob) error {
	if err := h.BeginBuild(); err != nil {
		return err
	}
	return h.EndBuild(h.load(blob))
}

func (h *HNSW) load(blob index.Blob) error {
	if err := blob.CheckFor(TypeHNSW, h.opts.ElementType); err != nil {
		return err
	}
	if len(blob.Data) == 0 {
		return fmt.Errorf("%w: empty hnsw payload", index.ErrInvalidBlob)
	}
	metric := distance.Metric(blob.Data[0])
	score, err := distance.Provider(metric)
	if err != nil {
		return fmt.Errorf("%w: %v", index.ErrInvalidBlob, err)
	}

	g := hnsw.NewGraph[int64]()
	if err := g.Import(bytes.NewReader(blob.Data[1:])); err != nil {
		return fmt.Errorf("%w: hnsw import: %v", index.ErrInvalidBlob, err)
	}
	if g.Len() != blob.Count {
		return fmt.Errorf("%w: graph holds %d of %d vectors", index.ErrInvalidBlob, g.Len(), blob.Count)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph, h.ef, h.metric, h.score, h.dim = g, g.EfSearch, metric, score, blob.Dim
	return nil
}

// Close drops the graph.
func (h *HNSW) Close() error {
	h.Destroy()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph = nil
	return nil
}
