package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/shoko/internal/models"
)

// Client calls a running Shoko server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// Index asks the server to rebuild a library's index. Empty algorithm or
// metric selects the server's defaults.
func (c *Client) Index(ctx context.Context, libraryID, algorithm, metric string) (*models.IndexResponse, error) {
	q := url.Values{}
	if algorithm != "" {
		q.Set("algorithm", algorithm)
	}
	if metric != "" {
		q.Set("metric", metric)
	}
	path := "/indexing/index/" + url.PathEscape(libraryID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out models.IndexResponse
	if err := c.post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a k-nearest-neighbor query against a library. k <= 0 selects the server default.
func (c *Client) Search(ctx context.Context, libraryID string, query []float32, k int) (*models.SearchResponse, error) {
	req := models.SearchRequest{QueryEmbedding: query}
	if k > 0 {
		req.K = &k
	}
	var out models.SearchResponse
	if err := c.post(ctx, "/indexing/search/"+url.PathEscape(libraryID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
