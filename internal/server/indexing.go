package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/shoko/internal/models"
	"github.com/hyperjump/shoko/internal/vector"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "libraryId")
	if _, err := s.storage.GetLibrary(r.Context(), id); err != nil {
		s.respondErr(w, err)
		return
	}
	d := s.indexDefaults()
	q := r.URL.Query()

	algName := q.Get("algorithm")
	if algName == "" {
		algName = d.DefaultAlgorithm
	}
	alg, err := vector.ParseAlgorithm(algName)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	metricName := q.Get("metric")
	if metricName == "" {
		metricName = d.DefaultMetric
	}
	metric, err := vector.ParseMetric(metricName)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.respondError(w, http.StatusTooManyRequests, "index rebuild rate limit exceeded")
		return
	}

	s.logger.Debug("index request", zap.String("library_id", id), zap.String("algorithm", alg.String()), zap.String("metric", string(metric)))
	info, err := s.manager.Index(r.Context(), id, alg, metric)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.IndexResponse{
		Message:    "library indexed",
		LibraryID:  info.LibraryID,
		Algorithm:  info.Algorithm.String(),
		Metric:     string(info.Metric),
		Size:       info.Size,
		Dimensions: info.Dimensions,
		BuildTime:  info.BuildTime.Milliseconds(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	d := s.indexDefaults()
	if err := req.Validate(d.DefaultK, d.MaxK); err != nil {
		s.respondErr(w, err)
		return
	}
	id := chi.URLParam(r, "libraryId")
	start := time.Now()
	res, err := s.manager.Search(r.Context(), id, req.QueryEmbedding, req.Limit())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	scores := make([]float64, len(res.Results))
	for i, hit := range res.Results {
		scores[i] = hit.Score
	}
	s.respondJSON(w, http.StatusOK, models.SearchResponse{
		Results:   vector.IDs(res.Results),
		Scores:    scores,
		Algorithm: res.Algorithm.String(),
		Metric:    string(res.Metric),
		Stale:     res.Stale,
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.manager.Status(r.Context(), chi.URLParam(r, "libraryId"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}
