package vector

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"sync"
)

type kdNode struct {
	item        treeItem
	axis        int
	left, right *kdNode
}

// KDTreeIndex is an exact k-d tree. The split axis cycles with depth; each
// node holds the median of its slice along that axis.
type KDTreeIndex struct {
	space             space
	parallelThreshold int

	mu    sync.RWMutex
	built bool
	dims  int
	size  int
	root  *kdNode
}

func newKDTreeIndex(sp space, parallelThreshold int) *KDTreeIndex {
	return &KDTreeIndex{space: sp, parallelThreshold: parallelThreshold}
}

// Build partitions a validated copy of entries. An empty input yields an empty tree.
func (t *KDTreeIndex) Build(entries []Entry) error {
	p, err := prepare(t.space, entries)
	if err != nil {
		return err
	}
	var root *kdNode
	if len(p.entries) > 0 {
		b := newBuilder(t.parallelThreshold)
		root = t.build(b, treeItems(t.space, p.entries), 0, p.dims)
		b.wait()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.built {
		return ErrAlreadyBuilt
	}
	t.root = root
	t.dims = p.dims
	t.size = len(p.entries)
	t.built = true
	return nil
}

func (t *KDTreeIndex) build(b *builder, items []treeItem, depth, dims int) *kdNode {
	if len(items) == 0 {
		return nil
	}
	axis := depth % dims
	slices.SortFunc(items, func(x, y treeItem) int {
		if c := cmp.Compare(x.geo[axis], y.geo[axis]); c != 0 {
			return c
		}
		return strings.Compare(x.entry.ID, y.entry.ID)
	})
	mid := len(items) / 2
	n := &kdNode{item: items[mid], axis: axis}
	left, right := items[:mid], items[mid+1:]
	b.spawn(len(left), func() { n.left = t.build(b, left, depth+1, dims) })
	n.right = t.build(b, right, depth+1, dims)
	return n
}

// Search descends to the query's side of each split first and visits the
// other side only while the split plane is within the current worst distance.
func (t *KDTreeIndex) Search(query []float32, k int) ([]Result, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if k <= 0 || t.root == nil {
		return []Result{}, nil
	}
	if err := checkQuery(t.space, t.dims, query); err != nil {
		return nil, err
	}
	best := newTopK(k, t.size)
	t.search(t.root, query, t.space.geometry(query), best)
	return best.results(t.space), nil
}

func (t *KDTreeIndex) search(n *kdNode, query []float32, qgeo []float64, best *topK) {
	if n == nil {
		return
	}
	best.offer(candidate{id: n.item.entry.ID, distance: t.space.distance(query, n.item.entry.Embedding)})

	diff := qgeo[n.axis] - n.item.geo[n.axis]
	near, far := n.left, n.right
	if diff > 0 {
		near, far = n.right, n.left
	}
	t.search(near, query, qgeo, best)
	if far != nil && best.admits(t.space.bound(math.Abs(diff))) {
		t.search(far, query, qgeo, best)
	}
}

// Size returns the number of indexed entries.
func (t *KDTreeIndex) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Dimensions returns the dimensionality of the indexed embeddings, 0 if empty.
func (t *KDTreeIndex) Dimensions() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dims
}

// Algorithm returns AlgorithmKDTree.
func (t *KDTreeIndex) Algorithm() Algorithm { return AlgorithmKDTree }

// Metric returns the metric the index ranks by.
func (t *KDTreeIndex) Metric() Metric { return t.space.metric }
