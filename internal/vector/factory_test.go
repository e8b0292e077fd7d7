package vector

import (
	"errors"
	"testing"
)

func TestNew_AllAlgorithms(t *testing.T) {
	for _, alg := range Algorithms {
		idx, err := New(alg, MetricEuclidean)
		if err != nil {
			t.Fatalf("New(%s): %v", alg, err)
		}
		if idx.Algorithm() != alg {
			t.Errorf("Algorithm()=%s, want %s", idx.Algorithm(), alg)
		}
		if idx.Metric() != MetricEuclidean {
			t.Errorf("Metric()=%s, want euclidean", idx.Metric())
		}
		if err := idx.Build([]Entry{{ID: "a", Embedding: []float32{1, 0, 0}}}); err != nil {
			t.Fatalf("Build: %v", err)
		}
		if idx.Size() != 1 || idx.Dimensions() != 3 {
			t.Errorf("Size=%d Dimensions=%d, want 1 and 3", idx.Size(), idx.Dimensions())
		}
	}
}

func TestNew_EmptyDefaults(t *testing.T) {
	idx, err := New("", "")
	if err != nil {
		t.Fatalf("New('', ''): %v", err)
	}
	if idx.Algorithm() != AlgorithmLinear || idx.Metric() != MetricEuclidean {
		t.Errorf("got %s/%s, want linear_search/euclidean", idx.Algorithm(), idx.Metric())
	}
	if idx.Size() != 0 {
		t.Errorf("Size=%d, want 0", idx.Size())
	}
}

func TestNew_Unknown(t *testing.T) {
	if _, err := New("bogus", MetricEuclidean); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("New(bogus) err = %v, want ErrUnknownAlgorithm", err)
	}
	if _, err := New(AlgorithmLinear, "manhattan"); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("New(manhattan) err = %v, want ErrUnknownMetric", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		name    string
		want    Algorithm
		wantErr bool
	}{
		{"linear_search", AlgorithmLinear, false},
		{"kd_tree", AlgorithmKDTree, false},
		{"ball_tree", AlgorithmBallTree, false},
		{"", AlgorithmLinear, false},
		{"bogus", "", true},
		{"KD_TREE", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestParseMetric(t *testing.T) {
	if m, err := ParseMetric("cosine"); err != nil || m != MetricCosine {
		t.Errorf("ParseMetric(cosine) = %q, %v", m, err)
	}
	if m, err := ParseMetric(""); err != nil || m != MetricEuclidean {
		t.Errorf("ParseMetric('') = %q, %v", m, err)
	}
	if _, err := ParseMetric("dot"); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("ParseMetric(dot) err = %v", err)
	}
}
