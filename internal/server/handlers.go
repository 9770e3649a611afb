package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/vecstore/internal/models"
	"github.com/hyperjump/vecstore/internal/storage"
	"github.com/hyperjump/vecstore/internal/store"
	"github.com/hyperjump/vecstore/internal/vector"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	resp := map[string]interface{}{
		"collections":    stats.Collections,
		"vectors":        stats.Vectors,
		"engine_stats":   stats.Engine,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"config": map[string]interface{}{
			"engine_type": s.config.Engine.Type,
			"workers":     s.config.Engine.Workers,
			"selection":   s.config.Engine.Selection,
			"data_dir":    s.store.DataDir(),
			"import_dir":  s.config.Storage.ImportDir,
		},
	}
	usage, err := storage.DirUsage(s.store.DataDir(), store.FileSuffix)
	if err != nil {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	} else {
		resp["disk_usage_bytes"] = usage.Bytes
		resp["files"] = usage.Files
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"collections": s.store.GetCollections(r.Context()),
	})
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCollectionRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	s.logger.Debug("create collection request", zap.String("collection", req.ID), zap.Int("dimensions", req.Dimensions))
	if err := s.store.CreateCollection(r.Context(), req.ID, req.Dimensions); err != nil {
		s.respondStoreError(w, "create collection", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": req.ID, "status": "created"})
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete collection request", zap.String("collection", id))
	if err := s.store.DeleteCollection(r.Context(), id); err != nil {
		s.respondStoreError(w, "delete collection", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleAddDocuments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.AddDocumentsRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("add documents request", zap.String("collection", id), zap.Int("documents", len(req.Documents)))
	if err := s.store.CreateCollection(r.Context(), id, 0); err != nil {
		s.respondStoreError(w, "create collection", err)
		return
	}
	if err := s.store.AddDocuments(r.Context(), id, req.Documents); err != nil {
		s.respondStoreError(w, "add documents", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"id": id, "added": len(req.Documents)})
}

func (s *Server) handleGetDocuments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	offset, ok := s.intParam(w, r, "offset")
	if !ok {
		return
	}
	limit, ok := s.intParam(w, r, "limit")
	if !ok {
		return
	}
	offset, limit = models.NormalizePage(offset, limit)
	docs, err := s.store.GetDocuments(r.Context(), id, offset, limit)
	if err != nil {
		s.respondStoreError(w, "get documents", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"offset":    offset,
		"limit":     limit,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.QueryRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Now()
	probe := make([]float32, len(req.Vector))
	copy(probe, req.Vector)
	vector.NormalizeVector(probe)

	results, err := s.store.Query(r.Context(), id, probe, req.K)
	if err != nil {
		s.respondStoreError(w, "query", err)
		return
	}
	s.logger.Debug("query", zap.String("collection", id), zap.Int("k", req.K), zap.Int("results", len(results)))
	s.respondJSON(w, http.StatusOK, &models.QueryResponse{
		Results:   results,
		QueryTime: time.Since(start).Milliseconds(),
	})
}

// decode reads a JSON body into v. An empty body is accepted only when allowEmpty is set.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	s.respondError(w, http.StatusBadRequest, "invalid request body")
	return false
}

func (s *Server) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

func (s *Server) respondStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrCollectionNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case store.IsValidation(err):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(op+" failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
