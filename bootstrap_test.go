package annkit

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annkit/config"
	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/resource"
	"github.com/hupe1980/annkit/testutil"
)

const defaultKeyCount = 31

func TestBootstrap(t *testing.T) {
	r := NewRegistry()
	limits := Limits{config.GPUConcurrentSize: 2, config.CPUConcurrentSize: 0}
	require.NoError(t, Bootstrap(r, DefaultRegistrations(), limits))
	assert.Equal(t, defaultKeyCount, r.Len())

	for _, name := range []string{"GPU_RAFT_IVF_PQ", "GPU_IVF_PQ", "GPU_RAFT_IVF_FLAT", "GPU_IVF_FLAT"} {
		entry, err := r.Lookup(name, index.Float32)
		require.NoError(t, err)
		assert.Equal(t, 2, entry.Limit(), name)
		assert.Equal(t, resource.PolicyBlock, entry.Policy())
	}
	for _, key := range []Key{
		{"FLAT", index.Int8},
		{"BIN_FLAT", index.Binary},
		{"IVFFLAT", index.BFloat16},
		{"IVFSQ", index.Float16},
		{"IVFFLATCC", index.Float16},
		{"IVF_PQ", index.Float32},
		{"SCANN", index.BFloat16},
		{"HNSW", index.Float16},
	} {
		entry, err := r.Lookup(key.Name, key.ElementType)
		require.NoError(t, err, key)
		assert.Equal(t, 0, entry.Limit())
	}
	_, err := r.Lookup("GPU_IVF_PQ", index.Float16)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)

	t.Run("SecondRunConflicts", func(t *testing.T) {
		err := Bootstrap(r, DefaultRegistrations(), limits)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrKeyConflict)
		assert.Len(t, err.(interface{ Unwrap() []error }).Unwrap(), defaultKeyCount)
		assert.Equal(t, defaultKeyCount, r.Len())
	})

	t.Run("PolicyOverride", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, Bootstrap(r, DefaultRegistrations(), limits, WithPolicy(resource.PolicyFailFast)))
		entry, err := r.Lookup("GPU_IVF_FLAT", index.Float32)
		require.NoError(t, err)
		assert.Equal(t, resource.PolicyFailFast, entry.Policy())
	})

	t.Run("RowPolicyWins", func(t *testing.T) {
		r := NewRegistry()
		table := []Registration{
			{Names: []string{"PINNED"}, ElementTypes: []index.ElementType{index.Float32}, Builder: newStub, Policy: resource.PolicyFailFast},
			{Names: []string{"OPEN"}, ElementTypes: []index.ElementType{index.Float32}, Builder: newStub},
		}
		require.NoError(t, Bootstrap(r, table, nil, WithPolicy(resource.PolicyBlock)))

		pinned, err := r.Lookup("PINNED", index.Float32)
		require.NoError(t, err)
		assert.Equal(t, resource.PolicyFailFast, pinned.Policy())

		open, err := r.Lookup("OPEN", index.Float32)
		require.NoError(t, err)
		assert.Equal(t, resource.PolicyBlock, open.Policy())
	})

	t.Run("MissingLimitOption", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, Bootstrap(r, DefaultRegistrations(), nil))
		entry, err := r.Lookup("GPU_IVF_PQ", index.Float32)
		require.NoError(t, err)
		assert.Equal(t, 0, entry.Limit())
	})

	t.Run("PartialFailure", func(t *testing.T) {
		r := NewRegistry()
		err := Bootstrap(r, []Registration{
			{Names: []string{"A", ""}, ElementTypes: []index.ElementType{index.Float32}, Builder: newStub},
			{Names: []string{"B"}, ElementTypes: []index.ElementType{index.Float32}, Builder: newStub, LimitOption: "x"},
		}, Limits{"x": -1})
		assert.ErrorIs(t, err, ErrInvalidRegistration)
		assert.Equal(t, []Key{{"A", index.Float32}}, slices.Collect(r.ListRegistered()))
	})
}

func TestDefaultRegistrations_Build(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, Bootstrap(r, DefaultRegistrations(), Limits{config.GPUConcurrentSize: 1}))

	const dim = 8
	rng := testutil.NewRNG(1)
	data := rng.ClusteredVectors(300, dim, 4, 0.05)
	ctx := context.Background()

	for key := range r.ListRegistered() {
		t.Run(key.String(), func(t *testing.T) {
			node, err := r.CreateIndex(key.Name, key.ElementType, index.CurrentVersion)
			require.NoError(t, err)
			defer node.Close()

			var ds *index.Dataset
			var cfg index.Config
			if key.ElementType == index.Binary {
				ds, err = index.NewBinary(64, rng.BinaryVectors(300, 64))
				require.NoError(t, err)
			} else {
				ds = testutil.ConvertDataset(t, key.ElementType, dim, data)
				cfg = index.Config{NList: 4, NBits: 4}
			}

			_, err = node.Search(ctx, ds, 1, cfg, nil)
			assert.ErrorIs(t, err, ErrNotReady)

			require.NoError(t, node.Build(ctx, ds, cfg))
			res, err := node.Search(ctx, ds, 3, index.Config{NProbe: 4}, nil)
			require.NoError(t, err)
			assert.Equal(t, ds.Rows(), res.Queries())
		})
	}
}

func TestAliases_BehaveIdentically(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, Bootstrap(r, DefaultRegistrations(), Limits{config.GPUConcurrentSize: 2}))

	const dim = 16
	data := testutil.NewRNG(5).ClusteredVectors(400, dim, 8, 0.05)
	queries := testutil.Float32Dataset(t, dim, data[:10*dim])
	ctx := context.Background()
	cfg := index.Config{NList: 8, NProbe: 2, NBits: 6}

	pairs := [][2]string{
		{"GPU_RAFT_IVF_PQ", "GPU_IVF_PQ"},
		{"GPU_RAFT_IVF_FLAT", "GPU_IVF_FLAT"},
		{"IVF_FLAT", "IVFFLAT"},
		{"IVF_FLAT", "IVFFLATCC"},
		{"IVF_SQ8", "IVFSQ"},
	}
	for _, pair := range pairs {
		t.Run(pair[1], func(t *testing.T) {
			var results []*index.Neighbors
			var blobs []index.Blob
			for _, name := range pair {
				entry, err := r.Lookup(name, index.Float32)
				require.NoError(t, err)

				node, err := entry.New(index.CurrentVersion)
				require.NoError(t, err)
				defer node.Close()

				require.NoError(t, node.Build(ctx, testutil.Float32Dataset(t, dim, data), cfg))
				res, err := node.Search(ctx, queries, 5, cfg, nil)
				require.NoError(t, err)
				results = append(results, res)

				blob, err := node.Serialize()
				require.NoError(t, err)
				blobs = append(blobs, blob)
			}
			assert.Equal(t, results[0].IDs, results[1].IDs)
			assert.Equal(t, results[0].Distances, results[1].Distances)
			assert.Equal(t, blobs[0], blobs[1])
		})
	}
}

func TestInit(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "error"

	require.NoError(t, Init(cfg))
	assert.Equal(t, defaultKeyCount, Default().Len())

	// Later calls return the first result without registering again.
	bad := config.Default()
	bad.LogLevel = "loud"
	assert.NoError(t, Init(bad))
	assert.Equal(t, defaultKeyCount, Default().Len())

	entry, err := Lookup("GPU_IVF_PQ", index.Float32)
	require.NoError(t, err)
	assert.Equal(t, cfg.GPUConcurrentSize, entry.Limit())

	node, err := CreateIndex("FLAT", index.Float32, index.CurrentVersion)
	require.NoError(t, err)
	require.NoError(t, node.Close())

	assert.True(t, slices.ContainsFunc(slices.Collect(ListRegistered()), func(k Key) bool {
		return k == Key{"HNSW", index.BFloat16}
	}))

	_, err = Register(Key{Name: "GPU_IVF_PQ", ElementType: index.Float32}, newStub, 1)
	assert.ErrorIs(t, err, ErrKeyConflict)
	assert.False(t, errors.Is(err, ErrRegistrySealed))
}
