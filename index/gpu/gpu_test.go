package gpu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/index/ivf"
	"github.com/hupe1980/annkit/internal/device"
	"github.com/hupe1980/annkit/testutil"
)

const testDim = 16

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testData(t *testing.T) []float32 {
	t.Helper()
	return testutil.NewRNG(9).ClusteredVectors(400, testDim, 8, 0.05)
}

func TestIndex_BuildSearch(t *testing.T) {
	ctx := context.Background()
	data := testData(t)

	for _, kind := range []ivf.Kind{ivf.KindPQ, ivf.KindFlat} {
		t.Run(kind.String(), func(t *testing.T) {
			before := device.OpenContexts()
			g := New(func(o *Options) { o.Kind = kind })
			assert.True(t, g.Capabilities().Accelerated)
			assert.Nil(t, g.Device())

			require.NoError(t, g.Build(ctx, testutil.Float32Dataset(t, testDim, data), index.Config{NList: 8, NProbe: 8}))
			assert.Equal(t, index.StateBuilt, g.State())
			assert.Equal(t, before+1, device.OpenContexts())
			assert.NotNil(t, g.Device())
			assert.Equal(t, 400, g.Count())

			res, err := g.Search(ctx, testutil.Float32Dataset(t, testDim, data[:testDim]), 5, index.Config{NProbe: 8}, nil)
			require.NoError(t, err)
			if kind == ivf.KindFlat {
				assert.Equal(t, int64(0), res.IDs[0])
			}
			assert.Len(t, res.IDs, 5)

			require.NoError(t, g.Close())
			assert.Equal(t, before, device.OpenContexts())
		})
	}
}

func TestIndex_Types(t *testing.T) {
	assert.Equal(t, TypeIVFPQ, New().Type())
	assert.Equal(t, TypeIVFFlat, New(func(o *Options) { o.Kind = ivf.KindFlat }).Type())
}

func TestIndex_ReleaseFromEveryState(t *testing.T) {
	ctx := context.Background()
	data := testData(t)
	before := device.OpenContexts()

	t.Run("Uninitialized", func(t *testing.T) {
		g := New()
		require.NoError(t, g.Close())
		require.NoError(t, g.Close())
		assert.Equal(t, before, device.OpenContexts())
		assert.Equal(t, index.StateDestroyed, g.State())
	})

	t.Run("Failed", func(t *testing.T) {
		g := New()
		fp16 := testutil.ConvertDataset(t, index.Float16, testDim, data)
		require.Error(t, g.Build(ctx, fp16, index.Config{}))
		assert.Equal(t, index.StateFailed, g.State())
		assert.Equal(t, before+1, device.OpenContexts())

		require.NoError(t, g.Close())
		require.NoError(t, g.Close())
		assert.Equal(t, before, device.OpenContexts())
	})

	t.Run("InvalidDevice", func(t *testing.T) {
		g := New()
		err := g.Build(ctx, testutil.Float32Dataset(t, testDim, data), index.Config{DeviceID: device.NumDevices})
		assert.ErrorIs(t, err, device.ErrInvalidDevice)
		assert.Equal(t, before, device.OpenContexts())
		require.NoError(t, g.Close())
	})

	t.Run("Built", func(t *testing.T) {
		g := New()
		require.NoError(t, g.Build(ctx, testutil.Float32Dataset(t, testDim, data), index.Config{NList: 8}))
		require.NoError(t, g.Close())
		require.NoError(t, g.Close())
		assert.Equal(t, before, device.OpenContexts())

		_, err := g.Search(ctx, testutil.Float32Dataset(t, testDim, data[:testDim]), 1, index.Config{}, nil)
		assert.ErrorIs(t, err, index.ErrNotReady)
	})
}

func TestIndex_CanceledSearch(t *testing.T) {
	data := testData(t)
	g := New()
	require.NoError(t, g.Build(context.Background(), testutil.Float32Dataset(t, testDim, data), index.Config{NList: 8}))
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Search(ctx, testutil.Float32Dataset(t, testDim, data[:testDim]), 1, index.Config{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex_HugeK(t *testing.T) {
	data := testData(t)
	g := New()
	require.NoError(t, g.Build(context.Background(), testutil.Float32Dataset(t, testDim, data), index.Config{NList: 8}))
	defer g.Close()

	_, err := g.Search(context.Background(), testutil.Float32Dataset(t, testDim, data[:testDim]), 1<<60, index.Config{}, nil)
	assert.ErrorIs(t, err, index.ErrInvalidK)
}

func TestIndex_Serialize(t *testing.T) {
	ctx := context.Background()
	data := testData(t)
	before := device.OpenContexts()

	g := New(func(o *Options) { o.Kind = ivf.KindFlat })
	require.NoError(t, g.Build(ctx, testutil.Float32Dataset(t, testDim, data), index.Config{NList: 8}))
	defer g.Close()

	_, err := New().Serialize()
	assert.ErrorIs(t, err, index.ErrNotReady)

	blob, err := g.Serialize()
	require.NoError(t, err)
	assert.Equal(t, TypeIVFFlat, blob.Type)

	restored := New(func(o *Options) { o.Kind = ivf.KindFlat })
	require.NoError(t, restored.Deserialize(blob))
	assert.Equal(t, before+2, device.OpenContexts())

	queries := testutil.Float32Dataset(t, testDim, data[:2*testDim])
	want, err := g.Search(ctx, queries, 3, index.Config{NProbe: 8}, nil)
	require.NoError(t, err)
	got, err := restored.Search(ctx, queries, 3, index.Config{NProbe: 8}, nil)
	require.NoError(t, err)
	assert.Equal(t, want.IDs, got.IDs)

	require.NoError(t, restored.Close())
	assert.Equal(t, before+1, device.OpenContexts())

	t.Run("KindMismatch", func(t *testing.T) {
		pq := New()
		assert.ErrorIs(t, pq.Deserialize(blob), index.ErrBlobMismatch)
		require.NoError(t, pq.Close())
	})
}
