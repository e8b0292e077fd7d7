package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/shoko/internal/models"
)

func TestClient_Index(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/indexing/index/lib-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("algorithm"); got != "kd_tree" {
			t.Errorf("algorithm = %q", got)
		}
		if r.URL.Query().Has("metric") {
			t.Error("empty metric should not be sent")
		}
		_ = json.NewEncoder(w).Encode(models.IndexResponse{LibraryID: "lib-1", Algorithm: "kd_tree", Size: 4})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL+"/").Index(context.Background(), "lib-1", "kd_tree", "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Size != 4 || resp.Algorithm != "kd_tree" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
			return
		}
		if req.K == nil || *req.K != 2 || len(req.QueryEmbedding) != 2 {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(models.SearchResponse{Results: []string{"a", "b"}, Scores: []float64{0.1, 0.9}})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Search(context.Background(), "lib-1", []float32{0.1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 || resp.Results[0] != "a" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "library missing: library not found"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Search(context.Background(), "missing", []float32{1}, 0)
	if err == nil || !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "library not found") {
		t.Errorf("err = %v", err)
	}
}
