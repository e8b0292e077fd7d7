package models

import "time"

// SearchResponse is the response for a search request. Results holds chunk ids
// nearest first; Scores is parallel to Results. Stale is set when the library
// changed after its index was built.
type SearchResponse struct {
	Results   []string  `json:"results"`
	Scores    []float64 `json:"scores"`
	Algorithm string    `json:"algorithm"`
	Metric    string    `json:"metric"`
	Stale     bool      `json:"stale"`
	QueryTime int64     `json:"query_time_ms"`
}

// IndexResponse is the response for an index (rebuild) request.
type IndexResponse struct {
	Message    string `json:"message"`
	LibraryID  string `json:"library_id"`
	Algorithm  string `json:"algorithm"`
	Metric     string `json:"metric"`
	Size       int    `json:"size"`
	Dimensions int    `json:"dimensions"`
	BuildTime  int64  `json:"build_time_ms"`
}

// IndexStatus describes the index currently published for a library.
type IndexStatus struct {
	LibraryID  string     `json:"library_id"`
	State      string     `json:"state"`
	Algorithm  string     `json:"algorithm,omitempty"`
	Metric     string     `json:"metric,omitempty"`
	Size       int        `json:"size"`
	Dimensions int        `json:"dimensions"`
	Stale      bool       `json:"stale"`
	BuiltAt    *time.Time `json:"built_at,omitempty"`
}
