package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/shoko/internal/indexer"
	"github.com/hyperjump/shoko/internal/models"
	"github.com/hyperjump/shoko/internal/storage"
	"github.com/hyperjump/shoko/internal/vector"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Shoko vector search API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	libCount, err := s.storage.CountLibraries(ctx)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	d := s.indexDefaults()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"libraries": libCount,
		"documents": docCount,
		"chunks":    chunkCount,
		"config": map[string]interface{}{
			"default_algorithm": d.DefaultAlgorithm,
			"default_metric":    d.DefaultMetric,
			"default_k":         d.DefaultK,
			"max_k":             d.MaxK,
		},
	})
}

// Libraries

func (s *Server) handleCreateLibrary(w http.ResponseWriter, r *http.Request) {
	var input models.LibraryInput
	if !s.decode(w, r, &input) {
		return
	}
	lib, err := s.storage.CreateLibrary(r.Context(), &input)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.manager.Register(lib.ID)
	s.logger.Debug("library created", zap.String("id", lib.ID), zap.Int("documents", len(input.Documents)))
	s.respondJSON(w, http.StatusCreated, lib)
}

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	libs, err := s.storage.ListLibraries(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, libs)
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	lib, err := s.storage.GetLibrary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, lib)
}

func (s *Server) handleUpdateLibrary(w http.ResponseWriter, r *http.Request) {
	var input models.LibraryInput
	if !s.decode(w, r, &input) {
		return
	}
	lib, err := s.storage.UpdateLibrary(r.Context(), chi.URLParam(r, "id"), &input)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, lib)
}

func (s *Server) handleDeleteLibrary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.storage.DeleteLibrary(r.Context(), id); err != nil {
		s.respondErr(w, err)
		return
	}
	s.manager.Drop(id)
	s.logger.Debug("library deleted", zap.String("id", id))
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListLibraryDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.storage.ListDocumentsByLibrary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, docs)
}

// Documents

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if !s.decode(w, r, &input) {
		return
	}
	doc, err := s.storage.CreateDocument(r.Context(), &input)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.manager.MarkStale(doc.LibraryID)
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.storage.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if !s.decode(w, r, &input) {
		return
	}
	doc, err := s.storage.UpdateDocument(r.Context(), chi.URLParam(r, "id"), &input)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.manager.MarkStale(doc.LibraryID)
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.storage.DeleteDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.manager.MarkStale(doc.LibraryID)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListDocumentChunks(w http.ResponseWriter, r *http.Request) {
	chunks, err := s.storage.ListChunksByDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chunks)
}

// Chunks

func (s *Server) handleCreateChunk(w http.ResponseWriter, r *http.Request) {
	var input models.ChunkInput
	if !s.decode(w, r, &input) {
		return
	}
	chunk, err := s.storage.CreateChunk(r.Context(), &input)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.manager.MarkStale(chunk.LibraryID)
	s.respondJSON(w, http.StatusCreated, chunk)
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	chunk, err := s.storage.GetChunk(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chunk)
}

func (s *Server) handleUpdateChunk(w http.ResponseWriter, r *http.Request) {
	var input models.ChunkInput
	if !s.decode(w, r, &input) {
		return
	}
	chunk, err := s.storage.UpdateChunk(r.Context(), chi.URLParam(r, "id"), &input)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.manager.MarkStale(chunk.LibraryID)
	s.respondJSON(w, http.StatusOK, chunk)
}

func (s *Server) handleDeleteChunk(w http.ResponseWriter, r *http.Request) {
	chunk, err := s.storage.DeleteChunk(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.manager.MarkStale(chunk.LibraryID)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, indexer.ErrLibraryNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, indexer.ErrBusy), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, indexer.ErrNotIndexed),
		errors.Is(err, indexer.ErrEmptyQuery),
		errors.Is(err, models.ErrInvalidQuery),
		errors.Is(err, vector.ErrDimensionMismatch),
		errors.Is(err, vector.ErrUnknownAlgorithm),
		errors.Is(err, vector.ErrUnknownMetric),
		errors.Is(err, vector.ErrZeroVector),
		errors.Is(err, vector.ErrInvalidEntry),
		errors.Is(err, vector.ErrNonFinite):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
