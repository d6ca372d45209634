package ivf

import (
	"fmt"

	"github.com/hupe1980/annkit/distance"
	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/internal/wire"
	"github.com/hupe1980/annkit/quantization"
)

// Serialize encodes the coarse quantizer, the inverted lists and, for
// quantized kinds, the trained quantizer. SCANN appends its raw vectors.
func (x *IVF) Serialize() (index.Blob, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := x.Ready(); err != nil {
		return index.Blob{}, err
	}

	w := wire.NewWriter(4 * (len(x.centroids) + x.count*x.dim))
	w.U8(uint8(x.opts.Kind))
	w.U8(uint8(x.metric))
	w.F32s(x.centroids)
	w.Int(len(x.ids))
	for l := range x.ids {
		w.I64s(x.ids[l])
		switch x.opts.Kind {
		case KindFlat:
			w.F32s(x.vecs[l])
		default:
			w.Raw(x.codes[l])
		}
	}

	var q []byte
	var err error
	switch x.opts.Kind {
	case KindSQ8:
		q, err = x.sq.MarshalBinary()
	case KindPQ, KindSCANN:
		q, err = x.pq.MarshalBinary()
	}
	if err != nil {
		return index.Blob{}, err
	}
	w.Raw(q)
	if x.opts.Kind == KindSCANN {
		w.F32s(x.raw)
	}

	return index.Blob{
		Type:        x.Type(),
		ElementType: x.opts.ElementType,
		Version:     x.opts.Version,
		Dim:         x.dim,
		Count:       x.count,
		Data:        w.Bytes(),
	}, nil
}

// Deserialize restores a node from a blob produced by Serialize.
func (x *IVF) Deserialize(blob index.Blob) error {
	if err := x.BeginBuild(); err != nil {
		return err
	}
	return x.EndBuild(x.load(blob))
}

func (x *IVF) load(blob index.Blob) error {
	if err := blob.CheckFor(x.Type(), x.opts.ElementType); err != nil {
		return err
	}
	if blob.Dim <= 0 {
		return fmt.Errorf("%w: dim %d", index.ErrInvalidBlob, blob.Dim)
	}

	r := wire.NewReader(blob.Data)
	kind := Kind(r.U8())
	metric := distance.Metric(r.U8())
	centroids := r.F32s()
	nlist := r.Int()
	if r.Err() == nil && (kind != x.opts.Kind || nlist < 0 || nlist > r.Remaining() || len(centroids) != nlist*blob.Dim) {
		return fmt.Errorf("%w: inconsistent ivf header", index.ErrInvalidBlob)
	}

	ids := make([][]int64, nlist)
	var vecs [][]float32
	var codes [][]byte
	if kind == KindFlat {
		vecs = make([][]float32, nlist)
	} else {
		codes = make([][]byte, nlist)
	}
	total := 0
	for l := 0; l < nlist && r.Err() == nil; l++ {
		ids[l] = r.I64s()
		total += len(ids[l])
		if kind == KindFlat {
			vecs[l] = r.F32s()
		} else {
			codes[l] = r.Raw()
		}
	}
	qdata := r.Raw()
	var raw []float32
	if kind == KindSCANN {
		raw = r.F32s()
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: %v", index.ErrInvalidBlob, err)
	}
	if total != blob.Count {
		return fmt.Errorf("%w: lists hold %d of %d vectors", index.ErrInvalidBlob, total, blob.Count)
	}
	if len(raw) == 0 {
		raw = nil
	} else if len(raw) != blob.Count*blob.Dim {
		return fmt.Errorf("%w: %d raw values for %d vectors", index.ErrInvalidBlob, len(raw), blob.Count)
	}
	if raw != nil {
		for _, list := range ids {
			for _, id := range list {
				if id < 0 || id >= int64(blob.Count) {
					return fmt.Errorf("%w: id %d out of range", index.ErrInvalidBlob, id)
				}
			}
		}
	}

	var sq *quantization.ScalarQuantizer
	var pq *quantization.ProductQuantizer
	switch kind {
	case KindSQ8:
		sq = quantization.NewScalarQuantizer(blob.Dim)
		if err := sq.UnmarshalBinary(qdata); err != nil {
			return fmt.Errorf("%w: %v", index.ErrInvalidBlob, err)
		}
	case KindPQ, KindSCANN:
		pq = &quantization.ProductQuantizer{}
		if err := pq.UnmarshalBinary(qdata); err != nil {
			return fmt.Errorf("%w: %v", index.ErrInvalidBlob, err)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.metric, x.dim, x.count = metric, blob.Dim, blob.Count
	x.centroids, x.ids, x.vecs, x.codes, x.raw = centroids, ids, vecs, codes, raw
	x.sq, x.pq = sq, pq
	return nil
}
