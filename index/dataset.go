package index

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/float16"

	"github.com/hupe1980/annkit/distance"
)

// Dataset is a dense, row-major batch of vectors of a single element type.
//
// Row i has the implicit id i. For Binary datasets Dim is measured in bits and
// each row occupies Dim/8 bytes.
type Dataset struct {
	typ  ElementType
	dim  int
	rows int

	f32 []float32
	u16 []uint16 // fp16 or bf16 bit patterns
	i8  []int8
	bin []byte
}

func checkShape(dim, n int) (int, error) {
	if dim <= 0 {
		return 0, &ErrInvalidConfig{Param: "dim", Reason: fmt.Sprintf("must be positive, got %d", dim)}
	}
	if n%dim != 0 {
		return 0, &ErrInvalidConfig{Param: "dim", Reason: fmt.Sprintf("%d values are not a multiple of %d", n, dim)}
	}
	return n / dim, nil
}

// NewFloat32 wraps data without copying.
func NewFloat32(dim int, data []float32) (*Dataset, error) {
	rows, err := checkShape(dim, len(data))
	if err != nil {
		return nil, err
	}
	return &Dataset{typ: Float32, dim: dim, rows: rows, f32: data}, nil
}

// NewFloat16 copies half-precision data into the dataset's bit-pattern storage.
// Later writes to data are not observed.
func NewFloat16(dim int, data []float16.Num) (*Dataset, error) {
	rows, err := checkShape(dim, len(data))
	if err != nil {
		return nil, err
	}
	bits := make([]uint16, len(data))
	for i, v := range data {
		bits[i] = v.Uint16()
	}
	return &Dataset{typ: Float16, dim: dim, rows: rows, u16: bits}, nil
}

// NewBFloat16 wraps raw bfloat16 bit patterns without copying.
func NewBFloat16(dim int, bits []uint16) (*Dataset, error) {
	rows, err := checkShape(dim, len(bits))
	if err != nil {
		return nil, err
	}
	return &Dataset{typ: BFloat16, dim: dim, rows: rows, u16: bits}, nil
}

// NewInt8 wraps data without copying.
func NewInt8(dim int, data []int8) (*Dataset, error) {
	rows, err := checkShape(dim, len(data))
	if err != nil {
		return nil, err
	}
	return &Dataset{typ: Int8, dim: dim, rows: rows, i8: data}, nil
}

// NewBinary wraps packed bit vectors. dim is the number of bits per vector
// and must be a multiple of 8.
func NewBinary(dim int, data []byte) (*Dataset, error) {
	if dim <= 0 || dim%8 != 0 {
		return nil, &ErrInvalidConfig{Param: "dim", Reason: fmt.Sprintf("binary dim must be a positive multiple of 8, got %d", dim)}
	}
	rows, err := checkShape(dim/8, len(data))
	if err != nil {
		return nil, err
	}
	return &Dataset{typ: Binary, dim: dim, rows: rows, bin: data}, nil
}

// Convert narrows float32 data into a dataset of element type t.
// Int8 values are rounded and clamped to [-128, 127]. Binary is not supported.
func Convert(t ElementType, dim int, data []float32) (*Dataset, error) {
	switch t {
	case Float32:
		return NewFloat32(dim, data)
	case Float16:
		rows, err := checkShape(dim, len(data))
		if err != nil {
			return nil, err
		}
		bits := make([]uint16, len(data))
		for i, v := range data {
			bits[i] = float16.New(v).Uint16()
		}
		return &Dataset{typ: Float16, dim: dim, rows: rows, u16: bits}, nil
	case BFloat16:
		bits := make([]uint16, len(data))
		for i, v := range data {
			bits[i] = bf16FromFloat32(v)
		}
		return NewBFloat16(dim, bits)
	case Int8:
		out := make([]int8, len(data))
		for i, v := range data {
			switch {
			case v >= 127:
				out[i] = 127
			case v <= -128:
				out[i] = -128
			case v < 0:
				out[i] = int8(v - 0.5)
			default:
				out[i] = int8(v + 0.5)
			}
		}
		return NewInt8(dim, out)
	default:
		return nil, fmt.Errorf("%w: cannot convert float32 to %s", ErrUnsupported, t)
	}
}

// ElementType returns the element type of every row.
func (d *Dataset) ElementType() ElementType { return d.typ }

// Dim returns the dimensionality (bits for Binary).
func (d *Dataset) Dim() int { return d.dim }

// Rows returns the number of vectors.
func (d *Dataset) Rows() int { return d.rows }

// Row widens row i to float32 into dst, growing it if needed, and returns it.
// For Float32 datasets the stored slice is returned directly and dst is unused.
// Binary datasets return nil.
func (d *Dataset) Row(i int, dst []float32) []float32 {
	lo, hi := i*d.dim, (i+1)*d.dim
	switch d.typ {
	case Float32:
		return d.f32[lo:hi:hi]
	case Binary:
		return nil
	}
	if cap(dst) < d.dim {
		dst = make([]float32, d.dim)
	}
	dst = dst[:d.dim]
	switch d.typ {
	case Float16:
		for j, b := range d.u16[lo:hi] {
			dst[j] = float16.FromBits(b).Float32()
		}
	case BFloat16:
		for j, b := range d.u16[lo:hi] {
			dst[j] = bf16ToFloat32(b)
		}
	case Int8:
		for j, v := range d.i8[lo:hi] {
			dst[j] = float32(v)
		}
	}
	return dst
}

// BinaryRow returns the packed bytes of row i. It returns nil for non-binary datasets.
func (d *Dataset) BinaryRow(i int) []byte {
	if d.typ != Binary {
		return nil
	}
	w := d.dim / 8
	return d.bin[i*w : (i+1)*w : (i+1)*w]
}

// Float32 returns every row widened to float32 in a single row-major slice.
// Float32 datasets return their backing slice.
func (d *Dataset) Float32() []float32 {
	if d.typ == Float32 {
		return d.f32
	}
	if d.typ == Binary {
		return nil
	}
	out := make([]float32, d.rows*d.dim)
	for i := 0; i < d.rows; i++ {
		d.Row(i, out[i*d.dim:(i+1)*d.dim])
	}
	return out
}

// Bytes returns the packed storage of a Binary dataset.
func (d *Dataset) Bytes() []byte { return d.bin }

// Check verifies that d has element type t and dimension dim.
func (d *Dataset) Check(t ElementType, dim int) error {
	if d == nil {
		return ErrEmptyDataset
	}
	if d.typ != t {
		return &ErrElementTypeMismatch{Expected: t, Actual: d.typ}
	}
	if dim > 0 && d.dim != dim {
		return &ErrDimensionMismatch{Expected: dim, Actual: d.dim}
	}
	return nil
}

// Vectors returns a private float32 copy of every row. With normalize set,
// each row is scaled to unit L2 norm; zero rows stay zero.
func (d *Dataset) Vectors(normalize bool) []float32 {
	src := d.Float32()
	out := make([]float32, len(src))
	copy(out, src)
	if normalize {
		for i := 0; i < d.rows; i++ {
			distance.NormalizeL2InPlace(out[i*d.dim : (i+1)*d.dim])
		}
	}
	return out
}
