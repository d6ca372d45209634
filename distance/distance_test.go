package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Mixed", []float32{1, -1, 2}, []float32{1, 1, -2}, -4},
		{"Empty", []float32{}, []float32{}, 0},
		{"Single", []float32{2}, []float32{3}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Dot(tt.a, tt.b), 1e-5)
		})
	}
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 27},
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"Mixed", []float32{1, -1}, []float32{-1, 1}, 8},
		{"Empty", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-3)
		})
	}
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-5)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-5)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-5)
	assert.Equal(t, float32(0), Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestHamming(t *testing.T) {
	assert.Equal(t, float32(0), Hamming([]byte{0xFF}, []byte{0xFF}))
	assert.Equal(t, float32(8), Hamming([]byte{0xFF}, []byte{0x00}))
	assert.Equal(t, float32(2), Hamming([]byte{0x01, 0x80}, []byte{0x00, 0x00}))
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	require.True(t, NormalizeL2InPlace(v))
	assert.InDelta(t, 0.6, v[0], 1e-5)
	assert.InDelta(t, 0.8, v[1], 1e-5)

	assert.False(t, NormalizeL2InPlace([]float32{0, 0}))

	src := []float32{0, 2}
	dst, ok := NormalizeL2Copy(src)
	require.True(t, ok)
	assert.Equal(t, []float32{0, 2}, src)
	assert.InDelta(t, 1.0, dst[1], 1e-5)
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{
		"L2":      MetricL2,
		"ip":      MetricIP,
		"Cosine":  MetricCosine,
		"HAMMING": MetricHamming,
		"":        MetricL2,
	} {
		m, err := ParseMetric(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, m, in)
	}

	_, err := ParseMetric("JACCARD")
	assert.Error(t, err)
}

func TestScoreRoundTrip(t *testing.T) {
	a := []float32{1, 2}
	b := []float32{3, 4}

	score, err := Provider(MetricIP)
	require.NoError(t, err)
	s := score(a, b)
	assert.InDelta(t, -11, s, 1e-5)
	assert.InDelta(t, 11, MetricIP.FromScore(s), 1e-5)
	assert.InDelta(t, s, MetricIP.ToScore(11), 1e-5)

	l2, err := Provider(MetricL2)
	require.NoError(t, err)
	assert.InDelta(t, 8, MetricL2.FromScore(l2(a, b)), 1e-3)

	_, err = Provider(MetricHamming)
	assert.Error(t, err)

	hb, err := ProviderBytes(MetricHamming)
	require.NoError(t, err)
	assert.Equal(t, float32(1), hb([]byte{1}, []byte{0}))

	_, err = ProviderBytes(MetricL2)
	assert.Error(t, err)
}
