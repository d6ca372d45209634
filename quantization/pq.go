package quantization

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/hupe1980/annkit/distance"
	"github.com/hupe1980/annkit/internal/kmeans"
	"github.com/hupe1980/annkit/internal/wire"
)

// ProductQuantizer implements Product Quantization (PQ).
// PQ splits vectors into M sub-vectors and quantizes each independently with
// its own k-means codebook of 2^nbits centroids.
//
// Example: 128-dim vector with M=8, nbits=8 → 8 byte codes (64x compression vs float32)
type ProductQuantizer struct {
	numSubvectors int         // M
	numCentroids  int         // K = 2^nbits
	dimension     int         // D
	subvectorDim  int         // D/M
	codebooks     [][]float32 // M codebooks of K*subvectorDim values
	maxIter       int
}

// NewProductQuantizer creates a new PQ quantizer.
// dimension must be divisible by numSubvectors and nbits must be in [1, 8].
func NewProductQuantizer(dimension, numSubvectors, nbits int) (*ProductQuantizer, error) {
	if numSubvectors <= 0 || dimension%numSubvectors != 0 {
		return nil, fmt.Errorf("pq: dimension %d must be divisible by m=%d", dimension, numSubvectors)
	}
	if nbits < 1 || nbits > 8 {
		return nil, fmt.Errorf("pq: nbits must be in [1, 8], got %d", nbits)
	}
	return &ProductQuantizer{
		numSubvectors: numSubvectors,
		numCentroids:  1 << nbits,
		dimension:     dimension,
		subvectorDim:  dimension / numSubvectors,
		maxIter:       20,
	}, nil
}

// Train learns one codebook per sub-space from row-major vectors.
// With fewer vectors than centroids, the codebook repeats training vectors.
func (pq *ProductQuantizer) Train(ctx context.Context, vectors []float32, rng *rand.Rand) error {
	n := len(vectors) / pq.dimension
	if n == 0 {
		return errors.New("pq: no vectors provided for training")
	}

	sub := make([]float32, n*pq.subvectorDim)
	codebooks := make([][]float32, pq.numSubvectors)
	for m := 0; m < pq.numSubvectors; m++ {
		off := m * pq.subvectorDim
		for i := 0; i < n; i++ {
			copy(sub[i*pq.subvectorDim:(i+1)*pq.subvectorDim], vectors[i*pq.dimension+off:i*pq.dimension+off+pq.subvectorDim])
		}

		if n < pq.numCentroids {
			cb := make([]float32, pq.numCentroids*pq.subvectorDim)
			for k := 0; k < pq.numCentroids; k++ {
				src := k % n
				copy(cb[k*pq.subvectorDim:(k+1)*pq.subvectorDim], sub[src*pq.subvectorDim:(src+1)*pq.subvectorDim])
			}
			codebooks[m] = cb
			continue
		}

		cb, err := kmeans.Train(ctx, sub, pq.subvectorDim, pq.numCentroids, pq.maxIter, rng)
		if err != nil {
			return fmt.Errorf("pq: train sub-space %d: %w", m, err)
		}
		codebooks[m] = cb
	}

	pq.codebooks = codebooks
	return nil
}

// Trained reports whether codebooks are present.
func (pq *ProductQuantizer) Trained() bool { return pq.codebooks != nil }

// Encode quantizes vec into dst (len M).
func (pq *ProductQuantizer) Encode(vec []float32, dst []byte) {
	for m := 0; m < pq.numSubvectors; m++ {
		start := m * pq.subvectorDim
		subvec := vec[start : start+pq.subvectorDim]
		dst[m] = uint8(kmeans.Nearest(subvec, pq.codebooks[m], pq.subvectorDim, distance.SquaredL2))
	}
}

// Decode reconstructs an approximate vector from PQ codes into dst.
func (pq *ProductQuantizer) Decode(codes []byte, dst []float32) {
	for m, c := range codes {
		k := int(c)
		copy(dst[m*pq.subvectorDim:(m+1)*pq.subvectorDim], pq.codebooks[m][k*pq.subvectorDim:(k+1)*pq.subvectorDim])
	}
}

// BuildDistanceTable precomputes the lower-is-better score from each query
// sub-vector to every centroid. table[m*K+k] holds the score for sub-space m,
// centroid k. Only MetricL2 and MetricIP are meaningful; callers normalize
// for cosine.
func (pq *ProductQuantizer) BuildDistanceTable(query []float32, metric distance.Metric) []float32 {
	table := make([]float32, pq.numSubvectors*pq.numCentroids)
	for m := 0; m < pq.numSubvectors; m++ {
		start := m * pq.subvectorDim
		q := query[start : start+pq.subvectorDim]
		cb := pq.codebooks[m]
		for k := 0; k < pq.numCentroids; k++ {
			c := cb[k*pq.subvectorDim : (k+1)*pq.subvectorDim]
			if metric == distance.MetricL2 {
				table[m*pq.numCentroids+k] = distance.SquaredL2(q, c)
			} else {
				table[m*pq.numCentroids+k] = -distance.Dot(q, c)
			}
		}
	}
	return table
}

// AdcDistance sums the table entries selected by codes.
func (pq *ProductQuantizer) AdcDistance(table []float32, codes []byte) float32 {
	var sum float32
	for m, c := range codes {
		sum += table[m*pq.numCentroids+int(c)]
	}
	return sum
}

// BytesPerVector returns the code size (one byte per sub-vector).
func (pq *ProductQuantizer) BytesPerVector() int { return pq.numSubvectors }

// NumSubvectors returns M.
func (pq *ProductQuantizer) NumSubvectors() int { return pq.numSubvectors }

// NumCentroids returns K.
func (pq *ProductQuantizer) NumCentroids() int { return pq.numCentroids }

// MarshalBinary implements encoding.BinaryMarshaler.
func (pq *ProductQuantizer) MarshalBinary() ([]byte, error) {
	if !pq.Trained() {
		return nil, errors.New("pq: not trained")
	}
	w := wire.NewWriter(16 + 4*pq.numCentroids*pq.dimension)
	w.Int(pq.dimension)
	w.Int(pq.numSubvectors)
	w.Int(pq.numCentroids)
	for _, cb := range pq.codebooks {
		w.F32s(cb)
	}
	return w.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (pq *ProductQuantizer) UnmarshalBinary(data []byte) error {
	r := wire.NewReader(data)
	dim, m, k := r.Int(), r.Int(), r.Int()
	if r.Err() == nil && (m <= 0 || m > r.Remaining() || dim%m != 0 || k <= 0 || k > 256) {
		return fmt.Errorf("pq: invalid shape d=%d m=%d k=%d", dim, m, k)
	}
	codebooks := make([][]float32, 0, m)
	for i := 0; i < m && r.Err() == nil; i++ {
		cb := r.F32s()
		if r.Err() == nil && len(cb) != k*dim/m {
			return fmt.Errorf("pq: codebook %d has %d values", i, len(cb))
		}
		codebooks = append(codebooks, cb)
	}
	if err := r.Err(); err != nil {
		return err
	}
	*pq = ProductQuantizer{
		numSubvectors: m,
		numCentroids:  k,
		dimension:     dim,
		subvectorDim:  dim / m,
		codebooks:     codebooks,
		maxIter:       20,
	}
	return nil
}
