package vector

import "fmt"

// Algorithm names an index variant.
type Algorithm string

const (
	// AlgorithmLinear scans every entry. Always exact; the baseline for the trees.
	AlgorithmLinear Algorithm = "linear_search"
	// AlgorithmKDTree partitions on one axis per level. Exact, fast in low dimensions.
	AlgorithmKDTree Algorithm = "kd_tree"
	// AlgorithmBallTree partitions into nested bounding balls. Exact.
	AlgorithmBallTree Algorithm = "ball_tree"
)

// Algorithms lists the supported variants.
var Algorithms = []Algorithm{AlgorithmLinear, AlgorithmKDTree, AlgorithmBallTree}

// ParseAlgorithm returns the algorithm for name. Empty string means linear_search.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case AlgorithmLinear, "":
		return AlgorithmLinear, nil
	case AlgorithmKDTree:
		return AlgorithmKDTree, nil
	case AlgorithmBallTree:
		return AlgorithmBallTree, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: linear_search, kd_tree, ball_tree)", ErrUnknownAlgorithm, name)
	}
}

func (a Algorithm) String() string {
	return string(a)
}

const (
	defaultLeafSize          = 16
	defaultParallelThreshold = 4096
)

type options struct {
	leafSize          int
	parallelThreshold int
}

// Option configures index construction.
type Option func(*options)

// WithLeafSize sets the maximum members of a ball-tree leaf (minimum 1).
func WithLeafSize(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.leafSize = n
		}
	}
}

// WithParallelThreshold sets the slice size above which tree subtrees are
// built concurrently. Zero or negative disables parallel construction.
func WithParallelThreshold(n int) Option {
	return func(o *options) { o.parallelThreshold = n }
}

// New creates an unbuilt index of the given algorithm and metric.
func New(alg Algorithm, metric Metric, opts ...Option) (Index, error) {
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	if metric == "" {
		metric = MetricEuclidean
	}
	o := options{leafSize: defaultLeafSize, parallelThreshold: defaultParallelThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	sp := space{metric: metric}
	switch alg {
	case AlgorithmLinear, "":
		return newLinearIndex(sp), nil
	case AlgorithmKDTree:
		return newKDTreeIndex(sp, o.parallelThreshold), nil
	case AlgorithmBallTree:
		return newBallTreeIndex(sp, o.leafSize, o.parallelThreshold), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: linear_search, kd_tree, ball_tree)", ErrUnknownAlgorithm, alg)
	}
}
