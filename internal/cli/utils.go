// Package cli provides CLI utilities for Shoko: an API client and result formatting.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/shoko/internal/models"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat validates an output format name.
func ParseOutputFormat(name string) (SearchOutputFormat, error) {
	switch SearchOutputFormat(name) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", name)
	}
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms (%s, %s)\n",
		len(response.Results), response.QueryTime, response.Algorithm, response.Metric)
	if response.Stale {
		fmt.Fprintln(w, "warning: library changed since it was indexed; results reflect the last index")
	}
	fmt.Fprintln(w)
	for i, id := range response.Results {
		score := 0.0
		if i < len(response.Scores) {
			score = response.Scores[i]
		}
		fmt.Fprintf(w, "  [%d] %s (%.4f)\n", i+1, id, score)
	}
}

// WriteIndexResult writes a summary of an index rebuild.
func WriteIndexResult(w io.Writer, response *models.IndexResponse) {
	fmt.Fprintf(w, "Indexed library %s with %s (%s): %d chunks, %d dimensions in %dms\n",
		response.LibraryID, response.Algorithm, response.Metric,
		response.Size, response.Dimensions, response.BuildTime)
}

// ParseVector parses a comma-separated list of numbers such as "0.1, 0.2,0.3".
// Surrounding brackets are allowed.
func ParseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("vector is empty")
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("vector component %d: %w", i, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}
