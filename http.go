// CLAUDE:SUMMARY HTTP surface — chi routes for upload, document lifecycle, QA, search, health.
package docqa

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/docqa/internal/answer"
	"github.com/hazyhaar/docqa/internal/ingest"
	"github.com/hazyhaar/docqa/internal/qa"
	"github.com/hazyhaar/docqa/internal/store"
)

// RegisterHTTP mounts the API on the router.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Post("/api/v1/documents", s.handleUpload)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{documentID}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{documentID}", s.handleDeleteDocument)
	r.Post("/api/v1/documents/{documentID}/reprocess", s.handleReprocess)
	r.Post("/api/v1/qa", s.handleAsk)
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	doc, err := s.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (s *Service) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Documents(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Service) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Document(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Service) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.Delete(r.Context(), chi.URLParam(r, "documentID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleReprocess(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Reprocess(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (s *Service) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req qa.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ans, err := s.Ask(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req qa.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	hits, err := s.Search(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if hits == nil {
		hits = []qa.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DB.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "index_entries": s.idx.Len()})
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *Service) writeServiceError(w http.ResponseWriter, err error) {
	var invalid *ingest.InvalidTransitionError
	var synth *answer.SynthesisError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, store.ErrConflict), errors.As(err, &invalid):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, qa.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "query must not be empty")
	case errors.As(err, &synth):
		s.logger.Error("synthesis failed", "error", err)
		writeError(w, http.StatusBadGateway, "answer synthesis failed")
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
