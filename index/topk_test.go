package index

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annkit/distance"
)

func TestTopK(t *testing.T) {
	tk := NewTopK(3)
	_, full := tk.Worst()
	assert.False(t, full)

	for i, s := range []float32{5, 1, 4, 2, 3, 1} {
		tk.Push(int64(i), s)
	}
	got := tk.Sorted()
	require.Len(t, got, 3)
	assert.Equal(t, []Candidate{{ID: 1, Score: 1}, {ID: 5, Score: 1}, {ID: 3, Score: 2}}, got)

	worst, full := tk.Worst()
	assert.True(t, full)
	assert.Equal(t, float32(2), worst)
}

func TestCheckK(t *testing.T) {
	one, err := NewFloat32(2, []float32{0, 0})
	require.NoError(t, err)
	many, err := NewFloat32(1, make([]float32, 1<<10))
	require.NoError(t, err)

	assert.NoError(t, CheckK(one, 1))
	assert.NoError(t, CheckK(one, MaxTopK))
	assert.NoError(t, CheckK(nil, 10))

	assert.ErrorIs(t, CheckK(one, 0), ErrInvalidK)
	assert.ErrorIs(t, CheckK(one, -3), ErrInvalidK)
	assert.ErrorIs(t, CheckK(one, 1<<60), ErrInvalidK)
	assert.ErrorIs(t, CheckK(one, MaxTopK+1), ErrInvalidK)
	assert.ErrorIs(t, CheckK(many, MaxTopK), ErrInvalidK, "nq*k above MaxResults")
	assert.NoError(t, CheckK(many, MaxResults>>10))
}

func TestTopK_LargeKGrowsOnDemand(t *testing.T) {
	tk := NewTopK(MaxTopK)
	assert.LessOrEqual(t, cap(tk.h), topKPrealloc)
	for i := 0; i < 1000; i++ {
		tk.Push(int64(i), float32(1000-i))
	}
	assert.Equal(t, 1000, tk.Len())
	assert.Equal(t, int64(999), tk.Sorted()[0].ID)
}

func TestNeighborsPadding(t *testing.T) {
	n := NewNeighbors(2, 3, distance.MetricL2)
	assert.Equal(t, 2, n.Queries())

	tk := NewTopK(3)
	tk.Push(7, 0.5)
	ids, dists := n.Row(1)
	tk.Fill(ids, dists, distance.MetricL2.FromScore)

	assert.Equal(t, []int64{-1, -1, -1, 7, -1, -1}, n.IDs)
	assert.Equal(t, float32(0.5), n.Distances[3])

	ip := NewNeighbors(1, 1, distance.MetricIP)
	assert.Less(t, ip.Distances[0], float32(-1e30))
}

func TestRangeResult(t *testing.T) {
	r := NewRangeResult([][]int64{{1, 2}, nil, {3}}, [][]float32{{0.1, 0.2}, nil, {0.3}})
	assert.Equal(t, []int{0, 2, 2, 3}, r.Lims)
	ids, dists := r.Row(2)
	assert.Equal(t, []int64{3}, ids)
	assert.Equal(t, []float32{0.3}, dists)
	ids, _ = r.Row(1)
	assert.Empty(t, ids)
}

func TestForEachQuery(t *testing.T) {
	var seen atomic.Int64
	err := ForEachQuery(context.Background(), 100, 4, func(_ context.Context, q int) error {
		seen.Add(int64(q))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99*100/2), seen.Load())

	boom := errors.New("boom")
	err = ForEachQuery(context.Background(), 10, 2, func(_ context.Context, q int) error {
		if q == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = ForEachQuery(ctx, 10, 1, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlobEnvelope(t *testing.T) {
	in := Blob{Type: "IVF_FLAT", ElementType: Float16, Version: CurrentVersion, Dim: 8, Count: 3, Data: []byte{1, 2, 3}}
	data, err := in.MarshalBinary()
	require.NoError(t, err)

	var out Blob
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, in, out)
	assert.NoError(t, out.CheckFor("IVF_FLAT", Float16))
	assert.ErrorIs(t, out.CheckFor("HNSW", Float16), ErrBlobMismatch)

	assert.ErrorIs(t, out.UnmarshalBinary([]byte("nope")), ErrInvalidBlob)
	assert.ErrorIs(t, out.UnmarshalBinary(data[:len(data)-1]), ErrInvalidBlob)
}
