package vector

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// treeItem is an entry plus the coordinates a tree partitions it on.
type treeItem struct {
	entry Entry
	geo   []float64
	key   float64
}

func treeItems(sp space, entries []Entry) []treeItem {
	items := make([]treeItem, len(entries))
	for i, e := range entries {
		items[i] = treeItem{entry: e, geo: sp.geometry(e.Embedding)}
	}
	return items
}

// builder runs subtree construction on a bounded goroutine pool. Subtrees
// own disjoint subslices of the item array, so they never share memory.
type builder struct {
	g         errgroup.Group
	threshold int
}

func newBuilder(threshold int) *builder {
	b := &builder{threshold: threshold}
	b.g.SetLimit(runtime.GOMAXPROCS(0))
	return b
}

// spawn runs fn on the pool when size exceeds the threshold and a worker is
// free; otherwise inline.
func (b *builder) spawn(size int, fn func()) {
	if b.threshold > 0 && size > b.threshold && b.g.TryGo(func() error { fn(); return nil }) {
		return
	}
	fn()
}

// wait blocks until every spawned subtree has been built.
func (b *builder) wait() {
	_ = b.g.Wait()
}
