package vector

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, alg Algorithm, metric Metric, entries []Entry, opts ...Option) Index {
	t.Helper()
	idx, err := New(alg, metric, opts...)
	require.NoError(t, err)
	require.NoError(t, idx.Build(entries))
	return idx
}

func randomEntries(r *rand.Rand, n, dims int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		emb := make([]float32, dims)
		for j := range emb {
			emb[j] = float32(r.NormFloat64())
		}
		entries[i] = Entry{ID: fmt.Sprintf("chunk-%04d", i), Embedding: emb}
	}
	return entries
}

func randomQuery(r *rand.Rand, dims int) []float32 {
	q := make([]float32, dims)
	for j := range q {
		q[j] = float32(r.NormFloat64())
	}
	return q
}

func TestSearch_Example(t *testing.T) {
	entries := []Entry{
		{ID: "a", Embedding: []float32{0, 0}},
		{ID: "b", Embedding: []float32{1, 0}},
		{ID: "c", Embedding: []float32{0, 1}},
	}
	for _, alg := range Algorithms {
		t.Run(string(alg), func(t *testing.T) {
			idx := buildIndex(t, alg, MetricEuclidean, entries)

			res, err := idx.Search([]float32{0.1, 0}, 1)
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, IDs(res))
			assert.InDelta(t, 0.1, res[0].Score, 1e-6)

			res, err = idx.Search([]float32{0.1, 0}, 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, IDs(res))
			assert.InDelta(t, 0.9, res[1].Score, 1e-6)

			res, err = idx.Search([]float32{0.1, 0}, 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b", "c"}, IDs(res))
		})
	}
}

func TestSearch_MatchesLinear(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, metric := range []Metric{MetricEuclidean, MetricCosine} {
		for _, dims := range []int{1, 2, 3, 8, 32} {
			for _, n := range []int{1, 2, 17, 300} {
				entries := randomEntries(r, n, dims)
				linear := buildIndex(t, AlgorithmLinear, metric, entries)
				trees := []Index{
					buildIndex(t, AlgorithmKDTree, metric, entries),
					buildIndex(t, AlgorithmBallTree, metric, entries),
					buildIndex(t, AlgorithmBallTree, metric, entries, WithLeafSize(1)),
				}
				for q := 0; q < 10; q++ {
					query := randomQuery(r, dims)
					for _, k := range []int{1, 5, n, n + 3} {
						want, err := linear.Search(query, k)
						require.NoError(t, err)
						for _, tree := range trees {
							got, err := tree.Search(query, k)
							require.NoError(t, err)
							require.Equal(t, IDs(want), IDs(got),
								"%s metric=%s dims=%d n=%d k=%d", tree.Algorithm(), metric, dims, n, k)
						}
					}
				}
			}
		}
	}
}

func TestSearch_ParallelBuildMatchesLinear(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	entries := randomEntries(r, 2000, 4)
	linear := buildIndex(t, AlgorithmLinear, MetricEuclidean, entries)
	kd := buildIndex(t, AlgorithmKDTree, MetricEuclidean, entries, WithParallelThreshold(16))
	ball := buildIndex(t, AlgorithmBallTree, MetricEuclidean, entries, WithParallelThreshold(16), WithLeafSize(4))
	for q := 0; q < 25; q++ {
		query := randomQuery(r, 4)
		want, err := linear.Search(query, 10)
		require.NoError(t, err)
		got, err := kd.Search(query, 10)
		require.NoError(t, err)
		assert.Equal(t, IDs(want), IDs(got))
		got, err = ball.Search(query, 10)
		require.NoError(t, err)
		assert.Equal(t, IDs(want), IDs(got))
	}
}

func TestSearch_TiesBrokenBySmallerID(t *testing.T) {
	entries := []Entry{
		{ID: "d", Embedding: []float32{5, 5}},
		{ID: "c", Embedding: []float32{1, 1}},
		{ID: "a", Embedding: []float32{1, 1}},
		{ID: "b", Embedding: []float32{1, 1}},
	}
	for _, alg := range Algorithms {
		idx := buildIndex(t, alg, MetricEuclidean, entries, WithLeafSize(1))
		res, err := idx.Search([]float32{1, 1}, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, IDs(res), "algorithm %s", alg)
	}
}

func TestSearch_EmptyAndUnbuilt(t *testing.T) {
	for _, alg := range Algorithms {
		idx, err := New(alg, MetricCosine)
		require.NoError(t, err)

		res, err := idx.Search([]float32{1, 2}, 3)
		require.NoError(t, err, "search before build must not fail")
		assert.Empty(t, res)

		require.NoError(t, idx.Build(nil))
		res, err = idx.Search([]float32{1, 2}, 3)
		require.NoError(t, err)
		assert.Empty(t, res)
		assert.Equal(t, 0, idx.Size())
	}
}

func TestSearch_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	entries := randomEntries(r, 64, 5)
	for _, alg := range Algorithms {
		euc := buildIndex(t, alg, MetricEuclidean, entries)
		cos := buildIndex(t, alg, MetricCosine, entries)
		for _, e := range entries {
			res, err := euc.Search(e.Embedding, 1)
			require.NoError(t, err)
			assert.Equal(t, e.ID, res[0].ID)
			assert.Equal(t, 0.0, res[0].Score)

			res, err = cos.Search(e.Embedding, 1)
			require.NoError(t, err)
			assert.Equal(t, e.ID, res[0].ID)
			assert.InDelta(t, 1.0, res[0].Score, 1e-9)
		}
	}
}

func TestSearch_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	entries := randomEntries(r, 100, 3)
	query := randomQuery(r, 3)
	for _, alg := range Algorithms {
		idx := buildIndex(t, alg, MetricEuclidean, entries)
		first, err := idx.Search(query, 7)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := idx.Search(query, 7)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}

func TestSearch_NonPositiveK(t *testing.T) {
	idx := buildIndex(t, AlgorithmKDTree, MetricEuclidean, []Entry{{ID: "a", Embedding: []float32{1}}})
	res, err := idx.Search([]float32{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearch_KLargerThanSize(t *testing.T) {
	// Cosine rejects zero vectors, so neither entry sits at the origin.
	entries := []Entry{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{0, 1}},
	}
	for _, alg := range Algorithms {
		for _, metric := range []Metric{MetricEuclidean, MetricCosine} {
			idx := buildIndex(t, alg, metric, entries)
			for _, k := range []int{3, 1 << 30, math.MaxInt} {
				res, err := idx.Search([]float32{0.9, 0.1}, k)
				require.NoError(t, err, "%s/%s k=%d", alg, metric, k)
				assert.Equal(t, []string{"a", "b"}, IDs(res), "%s/%s k=%d", alg, metric, k)
			}
		}
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	for _, alg := range Algorithms {
		idx := buildIndex(t, alg, MetricEuclidean, []Entry{{ID: "a", Embedding: []float32{1, 2, 3}}})
		_, err := idx.Search([]float32{1, 2}, 1)
		assert.ErrorIs(t, err, ErrDimensionMismatch, "algorithm %s", alg)
	}
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name    string
		metric  Metric
		entries []Entry
		wantErr error
	}{
		{"dimension mismatch", MetricEuclidean, []Entry{
			{ID: "a", Embedding: []float32{1, 2}},
			{ID: "b", Embedding: []float32{1}},
		}, ErrDimensionMismatch},
		{"empty id", MetricEuclidean, []Entry{{ID: "", Embedding: []float32{1}}}, ErrInvalidEntry},
		{"duplicate id", MetricEuclidean, []Entry{
			{ID: "a", Embedding: []float32{1}},
			{ID: "a", Embedding: []float32{2}},
		}, ErrInvalidEntry},
		{"zero dimensions", MetricEuclidean, []Entry{{ID: "a", Embedding: []float32{}}}, ErrInvalidEntry},
		{"zero vector under cosine", MetricCosine, []Entry{{ID: "a", Embedding: []float32{0, 0}}}, ErrZeroVector},
	}
	for _, tt := range tests {
		for _, alg := range Algorithms {
			t.Run(tt.name+"/"+string(alg), func(t *testing.T) {
				idx, err := New(alg, tt.metric)
				require.NoError(t, err)
				require.ErrorIs(t, idx.Build(tt.entries), tt.wantErr)

				// A failed build leaves the instance buildable.
				require.NoError(t, idx.Build([]Entry{{ID: "ok", Embedding: []float32{1, 1}}}))
				assert.Equal(t, 1, idx.Size())
			})
		}
	}
}

func TestBuild_OnlyOnce(t *testing.T) {
	for _, alg := range Algorithms {
		idx := buildIndex(t, alg, MetricEuclidean, []Entry{{ID: "a", Embedding: []float32{1}}})
		err := idx.Build([]Entry{{ID: "b", Embedding: []float32{2}}})
		assert.ErrorIs(t, err, ErrAlreadyBuilt)
		res, err := idx.Search([]float32{2}, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, IDs(res))
	}
}

func TestBuild_CopiesInput(t *testing.T) {
	emb := []float32{1, 0}
	entries := []Entry{{ID: "a", Embedding: emb}, {ID: "b", Embedding: []float32{3, 0}}}
	for _, alg := range Algorithms {
		idx := buildIndex(t, alg, MetricEuclidean, entries)
		emb[0] = 100
		res, err := idx.Search([]float32{0, 0}, 1)
		require.NoError(t, err)
		assert.Equal(t, "a", res[0].ID, "algorithm %s", alg)
		emb[0] = 1
	}
}

func TestSearch_ConcurrentReaders(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	entries := randomEntries(r, 500, 3)
	queries := make([][]float32, 16)
	for i := range queries {
		queries[i] = randomQuery(r, 3)
	}
	for _, alg := range Algorithms {
		idx := buildIndex(t, alg, MetricEuclidean, entries)
		linear := buildIndex(t, AlgorithmLinear, MetricEuclidean, entries)
		var wg sync.WaitGroup
		for _, q := range queries {
			wg.Add(1)
			go func(q []float32) {
				defer wg.Done()
				want, _ := linear.Search(q, 5)
				got, err := idx.Search(q, 5)
				assert.NoError(t, err)
				assert.Equal(t, IDs(want), IDs(got))
			}(q)
		}
		wg.Wait()
	}
}
