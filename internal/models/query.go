package models

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned by SearchRequest.Validate.
var ErrInvalidQuery = errors.New("invalid query")

// SearchRequest is the body of a k-nearest-neighbor search.
type SearchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	// K is the number of neighbors; nil means the configured default.
	K *int `json:"k,omitempty"`
}

// Validate sets the default k when unset and caps it at maxK.
// Returns an error if the embedding is empty or k is not positive.
func (q *SearchRequest) Validate(defaultK, maxK int) error {
	if len(q.QueryEmbedding) == 0 {
		return fmt.Errorf("%w: query_embedding cannot be empty", ErrInvalidQuery)
	}
	if q.K == nil {
		k := defaultK
		q.K = &k
	}
	if *q.K <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidQuery, *q.K)
	}
	if maxK > 0 && *q.K > maxK {
		k := maxK
		q.K = &k
	}
	return nil
}

// Limit returns k, or 0 when unset.
func (q *SearchRequest) Limit() int {
	if q.K == nil {
		return 0
	}
	return *q.K
}
