package index

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFloat32(t *testing.T) {
	ds, err := NewFloat32(2, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, 2, ds.Dim())
	assert.Equal(t, Float32, ds.ElementType())
	assert.Equal(t, []float32{3, 4}, ds.Row(1, nil))

	_, err = NewFloat32(4, []float32{1, 2, 3})
	var cfgErr *ErrInvalidConfig
	assert.ErrorAs(t, err, &cfgErr)

	_, err = NewFloat32(0, nil)
	assert.ErrorAs(t, err, &cfgErr)
}

func TestConvertWidensBack(t *testing.T) {
	src := []float32{0.5, -1.25, 3, 100}
	for _, et := range []ElementType{Float16, BFloat16, Int8} {
		t.Run(et.String(), func(t *testing.T) {
			ds, err := Convert(et, 2, src)
			require.NoError(t, err)
			assert.Equal(t, et, ds.ElementType())
			assert.Equal(t, 2, ds.Rows())

			got := ds.Float32()
			require.Len(t, got, len(src))
			for i := range src {
				tol := 0.01 * math.Abs(float64(src[i]))
				if et == Int8 {
					tol = 0.5
				}
				assert.InDelta(t, src[i], got[i], tol+1e-6)
			}
		})
	}

	_, err := Convert(Binary, 8, src)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestNewFloat16(t *testing.T) {
	data := []float16.Num{float16.New(1), float16.New(2)}
	ds, err := NewFloat16(2, data)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, ds.Row(0, nil))

	data[0] = float16.New(9)
	assert.Equal(t, []float32{1, 2}, ds.Row(0, nil), "dataset holds a copy")
}

func TestInt8Clamps(t *testing.T) {
	ds, err := Convert(Int8, 3, []float32{300, -300, -2.6})
	require.NoError(t, err)
	assert.Equal(t, []float32{127, -128, -3}, ds.Row(0, nil))
}

func TestBFloat16Bits(t *testing.T) {
	assert.Equal(t, uint16(0x3f80), bf16FromFloat32(1))
	assert.Equal(t, float32(1), bf16ToFloat32(0x3f80))
	assert.True(t, math.IsNaN(float64(bf16ToFloat32(bf16FromFloat32(float32(math.NaN()))))))
}

func TestNewBinary(t *testing.T) {
	ds, err := NewBinary(16, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Rows())
	assert.Equal(t, []byte{3, 4}, ds.BinaryRow(1))
	assert.Nil(t, ds.Row(0, nil))

	_, err = NewBinary(12, []byte{1, 2})
	assert.Error(t, err)
}

func TestDatasetCheck(t *testing.T) {
	ds, err := NewFloat32(2, []float32{1, 2})
	require.NoError(t, err)

	assert.NoError(t, ds.Check(Float32, 2))
	assert.NoError(t, ds.Check(Float32, 0))

	var dimErr *ErrDimensionMismatch
	assert.ErrorAs(t, ds.Check(Float32, 3), &dimErr)
	assert.Equal(t, 3, dimErr.Expected)

	var typeErr *ErrElementTypeMismatch
	assert.ErrorAs(t, ds.Check(Float16, 2), &typeErr)

	var nilDS *Dataset
	assert.ErrorIs(t, nilDS.Check(Float32, 2), ErrEmptyDataset)
}

func TestParseElementType(t *testing.T) {
	for _, et := range ElementTypes {
		got, err := ParseElementType(et.String())
		require.NoError(t, err)
		assert.Equal(t, et, got)
	}
	_, err := ParseElementType("complex64")
	assert.Error(t, err)
	assert.False(t, ElementType(0).Valid())
}
