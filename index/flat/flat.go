// Package flat provides exact (brute-force) indexes over float and binary vectors.
package flat

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/annkit/distance"
	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/internal/wire"
)

const (
	// TypeFlat is the algorithm name of float indexes.
	TypeFlat = "FLAT"
	// TypeBinFlat is the algorithm name of binary indexes.
	TypeBinFlat = "BIN_FLAT"
)

// Compile-time check to ensure Flat satisfies the node contract.
var _ index.Node = (*Flat)(nil)

// Options contains configuration options for the flat index.
type Options struct {
	// ElementType is the element type accepted by Build and Search.
	ElementType index.ElementType

	// Version is recorded in serialized blobs.
	Version index.Version
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	ElementType: index.Float32,
	Version:     index.CurrentVersion,
}

// Flat scans every stored vector for each query.
type Flat struct {
	index.Lifecycle

	opts Options

	mu      sync.RWMutex
	metric  distance.Metric
	dim     int
	count   int
	vectors []float32 // row-major, unit length for cosine
	codes   []byte    // packed rows for binary
}

// New creates a new instance of the flat index.
func New(optFns ...func(o *Options)) *Flat {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Flat{opts: opts}
}

// Type returns TypeBinFlat for binary indexes and TypeFlat otherwise.
func (f *Flat) Type() string {
	if f.opts.ElementType == index.Binary {
		return TypeBinFlat
	}
	return TypeFlat
}

func (f *Flat) Capabilities() index.Capabilities {
	return index.Capabilities{RangeSearch: true, Filtering: true}
}

func (f *Flat) Dim() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dim
}

func (f *Flat) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

func (f *Flat) binary() bool { return f.opts.ElementType == index.Binary }

func (f *Flat) metricFor(cfg index.Config) (distance.Metric, error) {
	def := distance.MetricL2
	if f.binary() {
		def = distance.MetricHamming
	}
	m, err := cfg.MetricType(def)
	if err != nil {
		return 0, err
	}
	if m.Binary() != f.binary() {
		return 0, &index.ErrInvalidConfig{Param: "metric_type", Reason: fmt.Sprintf("%s is not valid for %s vectors", m, f.opts.ElementType)}
	}
	return m, nil
}

// Build stores a private copy of data.
func (f *Flat) Build(ctx context.Context, data *index.Dataset, cfg index.Config) error {
	if err := f.BeginBuild(); err != nil {
		return err
	}
	return f.EndBuild(f.build(ctx, data, cfg))
}

func (f *Flat) build(ctx context.Context, data *index.Dataset, cfg index.Config) error {
	if err := data.Check(f.opts.ElementType, 0); err != nil {
		return err
	}
	if data.Rows() == 0 {
		return index.ErrEmptyDataset
	}
	metric, err := f.metricFor(cfg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.metric = metric
	f.dim = data.Dim()
	f.count = data.Rows()
	if f.binary() {
		f.codes = append([]byte(nil), data.Bytes()...)
	} else {
		f.vectors = data.Vectors(metric == distance.MetricCosine)
	}
	return nil
}

// scanner scores one query against every stored row.
type scanner func(q int, visit func(id int64, score float32))

func (f *Flat) newScanner(queries *index.Dataset) (scanner, error) {
	if f.binary() {
		return func(q int, visit func(int64, float32)) {
			query := queries.BinaryRow(q)
			w := f.dim / 8
			for i := 0; i < f.count; i++ {
				visit(int64(i), distance.Hamming(query, f.codes[i*w:(i+1)*w]))
			}
		}, nil
	}

	score, err := distance.Provider(f.metric)
	if err != nil {
		return nil, err
	}
	return func(q int, visit func(int64, float32)) {
		query := queries.Row(q, nil)
		if f.metric == distance.MetricCosine {
			query, _ = distance.NormalizeL2Copy(query)
			if query == nil {
				query = make([]float32, f.dim)
			}
		}
		for i := 0; i < f.count; i++ {
			visit(int64(i), score(query, f.vectors[i*f.dim:(i+1)*f.dim]))
		}
	}, nil
}

func (f *Flat) prepare(queries *index.Dataset) error {
	if err := f.Ready(); err != nil {
		return err
	}
	return queries.Check(f.opts.ElementType, f.dim)
}

// Search returns the exact topK neighbors of every query row.
func (f *Flat) Search(ctx context.Context, queries *index.Dataset, topK int, cfg index.Config, filter *index.Bitset) (*index.Neighbors, error) {
	if err := index.CheckK(queries, topK); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.prepare(queries); err != nil {
		return nil, err
	}
	scan, err := f.newScanner(queries)
	if err != nil {
		return nil, err
	}

	res := index.NewNeighbors(queries.Rows(), topK, f.metric)
	err = index.ForEachQuery(ctx, queries.Rows(), cfg.Parallelism, func(_ context.Context, q int) error {
		top := index.NewTopK(topK)
		scan(q, func(id int64, score float32) {
			if !filter.Excludes(id) {
				top.Push(id, score)
			}
		})
		ids, dists := res.Row(q)
		top.Fill(ids, dists, f.metric.FromScore)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RangeSearch returns every neighbor within the configured radius.
func (f *Flat) RangeSearch(ctx context.Context, queries *index.Dataset, cfg index.Config, filter *index.Bitset) (*index.RangeResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.prepare(queries); err != nil {
		return nil, err
	}
	in, err := index.RangeBounds(cfg, f.metric)
	if err != nil {
		return nil, err
	}
	scan, err := f.newScanner(queries)
	if err != nil {
		return nil, err
	}

	nq := queries.Rows()
	ids := make([][]int64, nq)
	dists := make([][]float32, nq)
	err = index.ForEachQuery(ctx, nq, cfg.Parallelism, func(_ context.Context, q int) error {
		scan(q, func(id int64, score float32) {
			d := f.metric.FromScore(score)
			if !filter.Excludes(id) && in(d) {
				ids[q] = append(ids[q], id)
				dists[q] = append(dists[q], d)
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return index.NewRangeResult(ids, dists), nil
}

// Serialize encodes the stored vectors.
func (f *Flat) Serialize() (index.Blob, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.Ready(); err != nil {
		return index.Blob{}, err
	}

	w := wire.NewWriter(8 + 4*len(f.vectors) + len(f.codes))
	w.U8(uint8(f.metric))
	if f.binary() {
		w.Raw(f.codes)
	} else {
		w.F32s(f.vectors)
	}
	return index.Blob{
		Type:        f.Type(),
		ElementType: f.opts.ElementType,
		Version:     f.opts.Version,
		Dim:         f.dim,
		Count:       f.count,
		Data:        w.Bytes(),
	}, nil
}

// Deserialize restores a node from a blob produced by Serialize.
func (f *Flat) Deserialize(blob index.Blob) error {
	if err := f.BeginBuild(); err != nil {
		return err
	}
	return f.EndBuild(f.load(blob))
}

func (f *Flat) load(blob index.Blob) error {
	if err := blob.CheckFor(f.Type(), f.opts.ElementType); err != nil {
		return err
	}

	r := wire.NewReader(blob.Data)
	metric := distance.Metric(r.U8())
	var vectors []float32
	var codes []byte
	if f.binary() {
		codes = r.Raw()
	} else {
		vectors = r.F32s()
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: %v", index.ErrInvalidBlob, err)
	}

	size := len(vectors)
	per := blob.Dim
	if f.binary() {
		size, per = len(codes), blob.Dim/8
	}
	if blob.Dim <= 0 || size != per*blob.Count {
		return fmt.Errorf("%w: %d values for %d rows of dim %d", index.ErrInvalidBlob, size, blob.Count, blob.Dim)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.metric, f.dim, f.count = metric, blob.Dim, blob.Count
	f.vectors, f.codes = vectors, codes
	return nil
}

// Close releases the stored vectors.
func (f *Flat) Close() error {
	f.Destroy()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors, f.codes = nil, nil
	return nil
}
