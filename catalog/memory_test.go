package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := c.Put(ctx, Record{Name: "a", Algorithm: "FLAT", ElementType: "fp32", Version: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Revision)
	assert.False(t, rec.UpdatedAt.IsZero())

	_, err = c.Put(ctx, Record{Name: "a", Algorithm: "HNSW"})
	assert.ErrorIs(t, err, ErrConflict)

	rec.Algorithm = "HNSW"
	rec, err = c.Put(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rec.Revision)

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = c.Put(ctx, Record{Name: "0"})
	require.NoError(t, err)
	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "0", list[0].Name)

	require.NoError(t, c.Delete(ctx, "a"))
	require.NoError(t, c.Delete(ctx, "a"))
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}
