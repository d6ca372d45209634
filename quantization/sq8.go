package quantization

import (
	"errors"
	"math"

	"github.com/hupe1980/annkit/internal/wire"
)

// ScalarQuantizer implements 8-bit scalar quantization with a separate
// [min, max] range per dimension.
type ScalarQuantizer struct {
	dim  int
	mins []float32
	maxs []float32
}

// NewScalarQuantizer creates an untrained 8-bit scalar quantizer.
func NewScalarQuantizer(dim int) *ScalarQuantizer {
	return &ScalarQuantizer{dim: dim}
}

// Train calibrates the per-dimension ranges on row-major vectors.
func (sq *ScalarQuantizer) Train(vectors []float32) error {
	if len(vectors) == 0 || len(vectors)%sq.dim != 0 {
		return errors.New("sq8: no vectors provided for training")
	}

	sq.mins = make([]float32, sq.dim)
	sq.maxs = make([]float32, sq.dim)
	for d := range sq.mins {
		sq.mins[d] = math.MaxFloat32
		sq.maxs[d] = -math.MaxFloat32
	}

	for i := 0; i < len(vectors); i += sq.dim {
		for d, val := range vectors[i : i+sq.dim] {
			if val < sq.mins[d] {
				sq.mins[d] = val
			}
			if val > sq.maxs[d] {
				sq.maxs[d] = val
			}
		}
	}

	// Handle dimensions where all values are the same
	for d := range sq.mins {
		if sq.mins[d] == sq.maxs[d] {
			sq.maxs[d] = sq.mins[d] + 1
		}
	}
	return nil
}

// Trained reports whether Train or UnmarshalBinary has run.
func (sq *ScalarQuantizer) Trained() bool { return sq.mins != nil }

// Encode quantizes v into dst (len dim), mapping each dimension linearly from
// [min, max] to [0, 255].
func (sq *ScalarQuantizer) Encode(v []float32, dst []byte) {
	for d, val := range v {
		lo, hi := sq.mins[d], sq.maxs[d]
		if val < lo {
			val = lo
		} else if val > hi {
			val = hi
		}
		dst[d] = uint8((val-lo)*255/(hi-lo) + 0.5)
	}
}

// Decode reconstructs an approximate vector into dst.
func (sq *ScalarQuantizer) Decode(code []byte, dst []float32) {
	for d, c := range code {
		dst[d] = float32(c)*(sq.maxs[d]-sq.mins[d])/255 + sq.mins[d]
	}
}

// BytesPerVector returns the code size (one byte per dimension).
func (sq *ScalarQuantizer) BytesPerVector() int { return sq.dim }

// MarshalBinary implements encoding.BinaryMarshaler.
func (sq *ScalarQuantizer) MarshalBinary() ([]byte, error) {
	w := wire.NewWriter(8 + 8*sq.dim)
	w.Int(sq.dim)
	w.F32s(sq.mins)
	w.F32s(sq.maxs)
	return w.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (sq *ScalarQuantizer) UnmarshalBinary(data []byte) error {
	r := wire.NewReader(data)
	dim := r.Int()
	mins, maxs := r.F32s(), r.F32s()
	if err := r.Err(); err != nil {
		return err
	}
	if len(mins) != dim || len(maxs) != dim {
		return errors.New("sq8: invalid range length")
	}
	sq.dim, sq.mins, sq.maxs = dim, mins, maxs
	return nil
}
