package vector

import "sync"

// LinearIndex is an exact brute-force index: every query is compared with
// every stored entry. It is the ground truth the tree indexes are tested against.
type LinearIndex struct {
	space   space
	mu      sync.RWMutex
	built   bool
	dims    int
	entries []Entry
}

func newLinearIndex(sp space) *LinearIndex {
	return &LinearIndex{space: sp}
}

// Build stores a validated copy of entries.
func (l *LinearIndex) Build(entries []Entry) error {
	p, err := prepare(l.space, entries)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.built {
		return ErrAlreadyBuilt
	}
	l.entries = p.entries
	l.dims = p.dims
	l.built = true
	return nil
}

// Search scores query against every entry and keeps the k nearest.
func (l *LinearIndex) Search(query []float32, k int) ([]Result, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if k <= 0 || len(l.entries) == 0 {
		return []Result{}, nil
	}
	if err := checkQuery(l.space, l.dims, query); err != nil {
		return nil, err
	}
	best := newTopK(k, len(l.entries))
	for _, e := range l.entries {
		best.offer(candidate{id: e.ID, distance: l.space.distance(query, e.Embedding)})
	}
	return best.results(l.space), nil
}

// Size returns the number of indexed entries.
func (l *LinearIndex) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Dimensions returns the dimensionality of the indexed embeddings, 0 if empty.
func (l *LinearIndex) Dimensions() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dims
}

// Algorithm returns AlgorithmLinear.
func (l *LinearIndex) Algorithm() Algorithm { return AlgorithmLinear }

// Metric returns the metric the index ranks by.
func (l *LinearIndex) Metric() Metric { return l.space.metric }
