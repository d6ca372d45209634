package index

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitset(t *testing.T) {
	var none *Bitset
	assert.False(t, none.Test(3))
	assert.True(t, none.Empty())
	assert.Zero(t, none.Count())
	assert.False(t, none.Excludes(3))
	assert.True(t, none.Excludes(-1))

	b := BitsetOf(1, 5)
	b.Set(9)
	b.SetRange(20, 23)
	b.Clear(5)

	assert.True(t, b.Test(1))
	assert.False(t, b.Test(5))
	assert.True(t, b.Excludes(21))
	assert.Equal(t, uint64(5), b.Count())
	assert.Equal(t, []uint32{1, 9, 20, 21, 22}, slices.Collect(b.All()))

	c := b.Clone()
	c.Set(100)
	assert.False(t, b.Test(100))
}

func TestBitsetBinary(t *testing.T) {
	b := BitsetOf(3, 70000)
	data, err := b.MarshalBinary()
	require.NoError(t, err)

	out := NewBitset()
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, []uint32{3, 70000}, slices.Collect(out.All()))

	data[0] ^= 0xff
	assert.Error(t, NewBitset().UnmarshalBinary(data))
}
