package vector

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"sync"
)

type ballNode struct {
	centroid []float64
	radius   float64
	// members is a view of every entry in the subtree. Only leaf members are
	// ever scored, so no entry is counted twice.
	members     []treeItem
	left, right *ballNode
}

func (n *ballNode) leaf() bool {
	return n.left == nil && n.right == nil
}

// BallTreeIndex is an exact ball tree. Each node bounds its members by a
// centroid and radius; a subtree is skipped when no member can beat the
// current worst candidate.
type BallTreeIndex struct {
	space             space
	leafSize          int
	parallelThreshold int

	mu    sync.RWMutex
	built bool
	dims  int
	size  int
	root  *ballNode
}

func newBallTreeIndex(sp space, leafSize, parallelThreshold int) *BallTreeIndex {
	return &BallTreeIndex{space: sp, leafSize: leafSize, parallelThreshold: parallelThreshold}
}

// Build partitions a validated copy of entries. An empty input yields an empty tree.
func (t *BallTreeIndex) Build(entries []Entry) error {
	p, err := prepare(t.space, entries)
	if err != nil {
		return err
	}
	var root *ballNode
	if len(p.entries) > 0 {
		b := newBuilder(t.parallelThreshold)
		root = t.build(b, treeItems(t.space, p.entries), p.dims)
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

func (t *BallTreeIndex) build(b *builder, items []treeItem, dims int) *ballNode {
	if len(items) == 0 {
		return nil
	}
	centroid := make([]float64, dims)
	for _, it := range items {
		for i, v := range it.geo {
			centroid[i] += v
		}
	}
	for i := range centroid {
		centroid[i] /= float64(len(items))
	}
	var radius float64
	for i := range items {
		items[i].key = geoDist(items[i].geo, centroid)
		radius = math.Max(radius, items[i].key)
	}
	n := &ballNode{centroid: centroid, radius: radius, members: items}
	if len(items) <= t.leafSize {
		return n
	}

	slices.SortFunc(items, func(x, y treeItem) int {
		if c := cmp.Compare(x.key, y.key); c != 0 {
			return c
		}
		return strings.Compare(x.entry.ID, y.entry.ID)
	})
	mid := len(items) / 2
	left, right := items[:mid], items[mid:]
	b.spawn(len(left), func() { n.left = t.build(b, left, dims) })
	n.right = t.build(b, right, dims)
	return n
}

// Search visits the child with the nearer centroid first and prunes any ball
// whose closest possible member, d(q, c) - r, is farther than the worst candidate.
func (t *BallTreeIndex) Search(query []float32, k int) ([]Result, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if k <= 0 || t.root == nil {
		return []Result{}, nil
	}
	if err := checkQuery(t.space, t.dims, query); err != nil {
		return nil, err
	}
	best := newTopK(k, t.size)
	qgeo := t.space.geometry(query)
	t.search(t.root, geoDist(qgeo, t.root.centroid), query, qgeo, best)
	return best.results(t.space), nil
}

// search expects dc, the geometry distance from the query to n's centroid.
func (t *BallTreeIndex) search(n *ballNode, dc float64, query []float32, qgeo []float64, best *topK) {
	if !best.admits(t.space.bound(dc - n.radius)) {
		return
	}
	if n.leaf() {
		for _, m := range n.members {
			best.offer(candidate{id: m.entry.ID, distance: t.space.distance(query, m.entry.Embedding)})
		}
		return
	}
	dl := geoDist(qgeo, n.left.centroid)
	dr := geoDist(qgeo, n.right.centroid)
	if dr < dl {
		t.search(n.right, dr, query, qgeo, best)
		t.search(n.left, dl, query, qgeo, best)
		return
	}
	t.search(n.left, dl, query, qgeo, best)
	t.search(n.right, dr, query, qgeo, best)
}

// Size returns the number of indexed entries.
func (t *BallTreeIndex) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Dimensions returns the dimensionality of the indexed embeddings, 0 if empty.
func (t *BallTreeIndex) Dimensions() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dims
}

// Algorithm returns AlgorithmBallTree.
func (t *BallTreeIndex) Algorithm() Algorithm { return AlgorithmBallTree }

// Metric returns the metric the index ranks by.
func (t *BallTreeIndex) Metric() Metric { return t.space.metric }
