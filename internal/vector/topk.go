package vector

import (
	"container/heap"
	"math"
	"sort"
)

type candidate struct {
	id       string
	distance float64
}

// farther reports whether a ranks after b: larger distance, or equal distance and larger id.
func farther(a, b candidate) bool {
	if a.distance != b.distance {
		return a.distance > b.distance
	}
	return a.id > b.id
}

// candidateHeap is a max-heap on (distance, id); the root is the current worst.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return farther(h[i], h[j]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

var _ heap.Interface = (*candidateHeap)(nil)

// topK keeps the k nearest candidates seen so far.
type topK struct {
	k int
	h candidateHeap
}

// newTopK sizes the set for k results out of n indexed entries.
func newTopK(k, n int) *topK {
	k = min(k, n)
	return &topK{k: k, h: make(candidateHeap, 0, max(k, 0))}
}

func (t *topK) full() bool {
	return len(t.h) >= t.k
}

// worst is the distance a candidate must not exceed to be admitted.
// It is +Inf until the set is full.
func (t *topK) worst() float64 {
	if !t.full() {
		return math.Inf(1)
	}
	return t.h[0].distance
}

// offer admits c if the set is not full or c ranks before the current worst,
// which is then evicted.
func (t *topK) offer(c candidate) {
	if t.k <= 0 {
		return
	}
	if !t.full() {
		heap.Push(&t.h, c)
		return
	}
	if farther(t.h[0], c) {
		t.h[0] = c
		heap.Fix(&t.h, 0)
	}
}

// admits reports whether a subtree whose members are all at least lower away
// could still contribute.
func (t *topK) admits(lower float64) bool {
	return !t.full() || lower <= t.worst()
}

// results drains the set nearest first.
func (t *topK) results(sp space) []Result {
	out := make([]candidate, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool { return farther(out[j], out[i]) })
	res := make([]Result, len(out))
	for i, c := range out {
		res[i] = Result{ID: c.id, Distance: c.distance, Score: sp.score(c.distance)}
	}
	return res
}
