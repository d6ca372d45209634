package index

import (
	"container/heap"
	"fmt"
	"sort"
)

const (
	// MaxTopK is the largest k a single search accepts.
	MaxTopK = 1 << 20
	// MaxResults bounds nq*k, the number of slots a search allocates.
	MaxResults = 1 << 26

	topKPrealloc = 256
)

// CheckK validates topK for a batch of queries. A nil dataset counts as
// zero rows.
func CheckK(queries *Dataset, topK int) error {
	if topK <= 0 {
		return ErrInvalidK
	}
	if topK > MaxTopK {
		return fmt.Errorf("%w: %d exceeds %d", ErrInvalidK, topK, MaxTopK)
	}
	if queries != nil && queries.Rows() > MaxResults/topK {
		return fmt.Errorf("%w: %d queries x %d results exceeds %d", ErrInvalidK, queries.Rows(), topK, MaxResults)
	}
	return nil
}

// Candidate is a scored row id. Lower scores are better.
type Candidate struct {
	ID    int64
	Score float32
}

// worse orders candidates by score, breaking ties on the larger id.
func worse(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID > b.ID
}

type maxHeap []Candidate

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(Candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopK keeps the k best candidates seen so far.
type TopK struct {
	k int
	h maxHeap
}

// NewTopK creates a collector for k results. The heap grows on demand past
// a small preallocation.
func NewTopK(k int) *TopK {
	return &TopK{k: k, h: make(maxHeap, 0, max(0, min(k, topKPrealloc)))}
}

// Push offers a candidate.
func (t *TopK) Push(id int64, score float32) {
	c := Candidate{ID: id, Score: score}
	if len(t.h) < t.k {
		heap.Push(&t.h, c)
		return
	}
	if worse(t.h[0], c) {
		t.h[0] = c
		heap.Fix(&t.h, 0)
	}
}

// Len returns the number of collected candidates.
func (t *TopK) Len() int { return len(t.h) }

// Worst returns the score that a new candidate must beat once the collector
// is full.
func (t *TopK) Worst() (float32, bool) {
	if len(t.h) < t.k {
		return 0, false
	}
	return t.h[0].Score, true
}

// Sorted returns the candidates best first.
func (t *TopK) Sorted() []Candidate {
	out := make([]Candidate, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool { return worse(out[j], out[i]) })
	return out
}

// Fill writes the sorted candidates into a result row, converting scores with
// conv. Unused slots keep their padding.
func (t *TopK) Fill(ids []int64, dists []float32, conv func(float32) float32) {
	for i, c := range t.Sorted() {
		if i >= len(ids) {
			break
		}
		ids[i] = c.ID
		dists[i] = conv(c.Score)
	}
}
