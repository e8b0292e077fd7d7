package vector

import (
	"fmt"
	"math"
)

// Metric names the measure used to rank neighbors.
type Metric string

const (
	// MetricEuclidean ranks by L2 distance, nearest first.
	MetricEuclidean Metric = "euclidean"
	// MetricCosine ranks by cosine similarity, most similar first.
	MetricCosine Metric = "cosine"
)

// ParseMetric returns the metric for name. Empty string means euclidean.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case MetricEuclidean, "":
		return MetricEuclidean, nil
	case MetricCosine:
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: euclidean, cosine)", ErrUnknownMetric, name)
	}
}

func (m Metric) String() string {
	return string(m)
}

// Euclidean returns the L2 distance between a and b.
func Euclidean(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, dimensionMismatch(len(a), len(b))
	}
	return euclidean(a, b), nil
}

// CosineSimilarity returns dot(a, b) / (|a| |b|), i.e. 1 - cosine distance.
// Fails with ErrZeroVector if either vector has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, dimensionMismatch(len(a), len(b))
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0, ErrZeroVector
	}
	return InnerProduct(a, b) / (na * nb), nil
}

// CosineDistance returns 1 - CosineSimilarity(a, b).
func CosineDistance(a, b []float32) (float64, error) {
	s, err := CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - s, nil
}

// InnerProduct returns the inner product of two vectors of equal length.
func InnerProduct(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func geoDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// space binds a metric to the functions the indexes need: the ranking distance
// between the original vectors, the score reported to callers, and the geometry
// used by the trees for pruning.
type space struct {
	metric Metric
}

// distance is the ranking key, smaller is nearer. Inputs are validated at build
// and query time, so the cosine zero-vector case cannot occur here.
func (s space) distance(a, b []float32) float64 {
	if s.metric == MetricCosine {
		na, nb := L2Norm(a), L2Norm(b)
		return 1 - InnerProduct(a, b)/(na*nb)
	}
	return euclidean(a, b)
}

// score converts a ranking distance to the value callers see.
func (s space) score(distance float64) float64 {
	if s.metric == MetricCosine {
		return 1 - distance
	}
	return distance
}

// geometry returns the float64 coordinates a tree partitions on. Cosine trees
// work on unit vectors, where L2 distance is monotonic in cosine distance.
func (s space) geometry(x []float32) []float64 {
	out := make([]float64, len(x))
	scale := 1.0
	if s.metric == MetricCosine {
		if n := L2Norm(x); n > 0 {
			scale = 1 / n
		}
	}
	for i, v := range x {
		out[i] = float64(v) * scale
	}
	return out
}

// bound converts a lower bound on the L2 distance in geometry space to a lower
// bound on the ranking distance. For unit vectors |a-b|^2 = 2(1 - cos).
func (s space) bound(geo float64) float64 {
	if geo < 0 {
		geo = 0
	}
	if s.metric == MetricCosine {
		return geo*geo/2 - boundSlack
	}
	return geo - boundSlack
}

// boundSlack absorbs rounding between the geometry bound and the ranking distance.
const boundSlack = 1e-9

// validate checks a vector for use under this metric.
func (s space) validate(x []float32) error {
	for _, v := range x {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrNonFinite
		}
	}
	if s.metric == MetricCosine && L2Norm(x) == 0 {
		return ErrZeroVector
	}
	return nil
}
