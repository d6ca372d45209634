package index

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// Bitset is a search filter over row ids. A set bit excludes that id from
// results. A nil *Bitset filters nothing.
type Bitset struct {
	rb *roaring.Bitmap
}

// NewBitset creates an empty bitset.
func NewBitset() *Bitset {
	return &Bitset{rb: roaring.New()}
}

// BitsetOf creates a bitset with the given ids set.
func BitsetOf(ids ...uint32) *Bitset {
	return &Bitset{rb: roaring.BitmapOf(ids...)}
}

// Set marks id as excluded.
func (b *Bitset) Set(id uint32) { b.rb.Add(id) }

// SetRange marks every id in [lo, hi) as excluded.
func (b *Bitset) SetRange(lo, hi uint64) { b.rb.AddRange(lo, hi) }

// Clear removes id from the exclusion set.
func (b *Bitset) Clear(id uint32) { b.rb.Remove(id) }

// Test reports whether id is excluded.
func (b *Bitset) Test(id uint32) bool {
	if b == nil {
		return false
	}
	return b.rb.Contains(id)
}

// Excludes reports whether row id must be skipped. Negative ids are always excluded.
func (b *Bitset) Excludes(id int64) bool {
	if id < 0 || id > int64(^uint32(0)) {
		return true
	}
	return b.Test(uint32(id))
}

// Count returns the number of excluded ids.
func (b *Bitset) Count() uint64 {
	if b == nil {
		return 0
	}
	return b.rb.GetCardinality()
}

// Empty reports whether nothing is excluded.
func (b *Bitset) Empty() bool {
	return b == nil || b.rb.IsEmpty()
}

// All yields the excluded ids in ascending order.
func (b *Bitset) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		if b == nil {
			return
		}
		it := b.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Clone returns a deep copy.
func (b *Bitset) Clone() *Bitset {
	if b == nil {
		return nil
	}
	return &Bitset{rb: b.rb.Clone()}
}

// MarshalBinary encodes the bitset in the portable roaring format.
func (b *Bitset) MarshalBinary() ([]byte, error) {
	return b.rb.ToBytes()
}

// UnmarshalBinary decodes a portable roaring bitmap.
func (b *Bitset) UnmarshalBinary(data []byte) error {
	rb := roaring.New()
	if _, err := rb.FromBuffer(data); err != nil {
		return err
	}
	// FromBuffer aliases data; detach it.
	b.rb = rb.Clone()
	return nil
}
