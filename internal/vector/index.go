// Package vector provides distance metrics and the spatial indexes used for
// k-nearest-neighbor search over chunk embeddings.
package vector

// Entry is one (id, embedding) pair an index is built from.
type Entry struct {
	ID        string
	Embedding []float32
}

// Result is a single search hit. Distance is the ranking key (smaller is
// nearer); Score is the L2 distance for euclidean and the similarity for cosine.
type Result struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Distance float64 `json:"-"`
}

// Index is a k-nearest-neighbor structure built once from a snapshot of entries.
// Search is safe for concurrent use after Build returns.
type Index interface {
	// Build constructs the index. It may succeed only once per instance.
	Build(entries []Entry) error
	// Search returns up to k results ordered nearest first, ties by smaller id.
	// An unbuilt or empty index returns no results and no error.
	Search(query []float32, k int) ([]Result, error)
	Size() int
	Dimensions() int
	Algorithm() Algorithm
	Metric() Metric
}

// IDs returns the ids of results in order.
func IDs(results []Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}

// prepared is the validated, owned copy of a build input shared by all variants.
type prepared struct {
	entries []Entry
	dims    int
}

// prepare validates entries for metric and deep-copies them. All embeddings
// must share one non-zero dimensionality; ids must be non-empty and unique.
func prepare(sp space, entries []Entry) (prepared, error) {
	if len(entries) == 0 {
		return prepared{}, nil
	}
	dims := len(entries[0].Embedding)
	if dims == 0 {
		return prepared{}, ErrInvalidEntry
	}
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return prepared{}, ErrInvalidEntry
		}
		if _, dup := seen[e.ID]; dup {
			return prepared{}, ErrInvalidEntry
		}
		seen[e.ID] = struct{}{}
		if len(e.Embedding) != dims {
			return prepared{}, dimensionMismatch(dims, len(e.Embedding))
		}
		if err := sp.validate(e.Embedding); err != nil {
			return prepared{}, err
		}
		emb := make([]float32, dims)
		copy(emb, e.Embedding)
		out[i] = Entry{ID: e.ID, Embedding: emb}
	}
	return prepared{entries: out, dims: dims}, nil
}

// checkQuery validates a query against a built index of dims dimensions.
func checkQuery(sp space, dims int, query []float32) error {
	if len(query) != dims {
		return dimensionMismatch(dims, len(query))
	}
	return sp.validate(query)
}
