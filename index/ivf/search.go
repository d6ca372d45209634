package ivf

import (
	"context"

	"github.com/hupe1980/annkit/distance"
	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/internal/kmeans"
)

// listScanner scores every entry of one inverted list against a prepared query.
type listScanner func(list int, visit func(id int64, score float32))

func (x *IVF) prepare(queries *index.Dataset) error {
	if err := x.Ready(); err != nil {
		return err
	}
	return queries.Check(x.opts.ElementType, x.dim)
}

// queryVector widens row q and normalizes it for cosine.
func (x *IVF) queryVector(queries *index.Dataset, q int) []float32 {
	v := queries.Row(q, nil)
	if x.metric == distance.MetricCosine {
		if n, ok := distance.NormalizeL2Copy(v); ok {
			return n
		}
		return make([]float32, x.dim)
	}
	return v
}

func (x *IVF) newScanner(query []float32, score distance.Func) listScanner {
	dim := x.dim
	switch {
	case x.vecs != nil:
		return func(l int, visit func(int64, float32)) {
			vecs := x.vecs[l]
			for i, id := range x.ids[l] {
				visit(id, score(query, vecs[i*dim:(i+1)*dim]))
			}
		}
	case x.sq != nil:
		buf := make([]float32, dim)
		w := x.sq.BytesPerVector()
		return func(l int, visit func(int64, float32)) {
			codes := x.codes[l]
			for i, id := range x.ids[l] {
				x.sq.Decode(codes[i*w:(i+1)*w], buf)
				visit(id, score(query, buf))
			}
		}
	default:
		w := x.pq.BytesPerVector()
		var shared []float32
		if x.metric != distance.MetricL2 {
			shared = x.pq.BuildDistanceTable(query, x.metric)
		}
		residual := make([]float32, dim)
		return func(l int, visit func(int64, float32)) {
			table := shared
			if table == nil {
				c := x.centroids[l*dim : (l+1)*dim]
				for j := range residual {
					residual[j] = query[j] - c[j]
				}
				table = x.pq.BuildDistanceTable(residual, distance.MetricL2)
			}
			codes := x.codes[l]
			for i, id := range x.ids[l] {
				visit(id, x.pq.AdcDistance(table, codes[i*w:(i+1)*w]))
			}
		}
	}
}

func (x *IVF) probe(query []float32, nprobe int, score distance.Func) []int {
	return kmeans.Closest(query, x.centroids, x.dim, nprobe, score)
}

// Search scans the nprobe closest lists of every query row.
func (x *IVF) Search(ctx context.Context, queries *index.Dataset, topK int, cfg index.Config, filter *index.Bitset) (*index.Neighbors, error) {
	if err := index.CheckK(queries, topK); err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := x.prepare(queries); err != nil {
		return nil, err
	}
	score, err := distance.Provider(x.metric)
	if err != nil {
		return nil, err
	}
	nprobe := index.IntOr(cfg.NProbe, DefaultNProbe)

	width := topK
	if x.raw != nil {
		width = min(max(topK, cfg.ReorderK), max(topK, x.count))
	}

	res := index.NewNeighbors(queries.Rows(), topK, x.metric)
	err = index.ForEachQuery(ctx, queries.Rows(), cfg.Parallelism, func(_ context.Context, q int) error {
		query := x.queryVector(queries, q)
		scan := x.newScanner(query, score)
		top := index.NewTopK(width)
		for _, l := range x.probe(query, nprobe, score) {
			scan(l, func(id int64, s float32) {
				if !filter.Excludes(id) {
					top.Push(id, s)
				}
			})
		}
		if x.raw != nil {
			top = x.rerank(query, top.Sorted(), topK, score)
		}
		ids, dists := res.Row(q)
		top.Fill(ids, dists, x.metric.FromScore)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// rerank scores candidates against the raw vectors and keeps the best k.
func (x *IVF) rerank(query []float32, candidates []index.Candidate, k int, score distance.Func) *index.TopK {
	top := index.NewTopK(k)
	for _, c := range candidates {
		top.Push(c.ID, score(query, x.rawVector(c.ID)))
	}
	return top
}

func (x *IVF) rawVector(id int64) []float32 {
	lo := int(id) * x.dim
	return x.raw[lo : lo+x.dim : lo+x.dim]
}

// RangeSearch returns the entries of the probed lists that fall within the
// configured radius.
func (x *IVF) RangeSearch(ctx context.Context, queries *index.Dataset, cfg index.Config, filter *index.Bitset) (*index.RangeResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := x.prepare(queries); err != nil {
		return nil, err
	}
	in, err := index.RangeBounds(cfg, x.metric)
	if err != nil {
		return nil, err
	}
	score, err := distance.Provider(x.metric)
	if err != nil {
		return nil, err
	}
	nprobe := index.IntOr(cfg.NProbe, DefaultNProbe)

	nq := queries.Rows()
	ids := make([][]int64, nq)
	dists := make([][]float32, nq)
	err = index.ForEachQuery(ctx, nq, cfg.Parallelism, func(_ context.Context, q int) error {
		query := x.queryVector(queries, q)
		scan := x.newScanner(query, score)
		for _, l := range x.probe(query, nprobe, score) {
			scan(l, func(id int64, s float32) {
				if x.raw != nil {
					s = score(query, x.rawVector(id))
				}
				d := x.metric.FromScore(s)
				if !filter.Excludes(id) && in(d) {
					ids[q] = append(ids[q], id)
					dists[q] = append(dists[q], d)
				}
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return index.NewRangeResult(ids, dists), nil
}

// Close releases the inverted lists.
func (x *IVF) Close() error {
	x.Destroy()

	x.mu.Lock()
	defer x.mu.Unlock()
	x.centroids, x.ids, x.vecs, x.codes, x.raw = nil, nil, nil, nil, nil
	x.sq, x.pq = nil, nil
	return nil
}
