// Package api exposes HTTP handlers for the document intelligence
// workflows: upload, question answering, and structured extraction.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fabfab/doc-intel/docstore"
	"github.com/fabfab/doc-intel/extraction"
	"github.com/fabfab/doc-intel/ingestion"
	"github.com/fabfab/doc-intel/llm"
	"github.com/fabfab/doc-intel/rag"
)

const maxUploadBytes = 20 << 20

// Server routes HTTP requests to the injected services.
type Server struct {
	logger    *log.Logger
	store     docstore.Repository
	ingest    *ingestion.Service
	answers   *rag.Service
	extractor *extraction.Extractor
	handler   http.Handler
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status          string `json:"status"`
	DocumentsLoaded int    `json:"documents_loaded"`
}

type uploadResponse struct {
	DocID         string `json:"doc_id"`
	Filename      string `json:"filename"`
	ChunksCreated int    `json:"chunks_created"`
	Status        string `json:"status"`
}

type documentSummary struct {
	DocID      string    `json:"doc_id"`
	Filename   string    `json:"filename"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type listResponse struct {
	Documents []documentSummary `json:"documents"`
}

type askRequest struct {
	DocID    string `json:"doc_id"`
	Question string `json:"question"`
}

type extractRequest struct {
	DocID string `json:"doc_id"`
}

func New(store docstore.Repository, ingest *ingestion.Service, answers *rag.Service, extractor *extraction.Extractor, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		logger:    logger,
		store:     store,
		ingest:    ingest,
		answers:   answers,
		extractor: extractor,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/documents", s.handleDocuments)
	mux.HandleFunc("/v1/ask", s.handleAsk)
	mux.HandleFunc("/v1/extract", s.handleExtract)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	infos, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("list documents: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", DocumentsLoaded: len(infos)})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleUpload(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		s.methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	doc, err := s.ingest.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		s.writeError(w, s.errorStatus(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, uploadResponse{
		DocID:         doc.ID.String(),
		Filename:      doc.Filename,
		ChunksCreated: len(doc.Chunks),
		Status:        "success",
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("list documents: %w", err))
		return
	}

	summaries := make([]documentSummary, len(infos))
	for i, info := range infos {
		summaries[i] = documentSummary{
			DocID:      info.ID.String(),
			Filename:   info.Filename,
			Chunks:     info.ChunkCount,
			UploadedAt: info.UploadedAt,
		}
	}

	s.writeJSON(w, http.StatusOK, listResponse{Documents: summaries})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	docID, err := uuid.Parse(req.DocID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid doc_id: %w", err))
		return
	}

	answer, err := s.answers.Ask(r.Context(), docID, req.Question)
	if err != nil {
		s.writeError(w, s.errorStatus(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req extractRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	docID, err := uuid.Parse(req.DocID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid doc_id: %w", err))
		return
	}

	doc, err := s.store.Get(r.Context(), docID)
	if err != nil {
		s.writeError(w, s.errorStatus(err), err)
		return
	}

	result, err := s.extractor.Extract(r.Context(), doc.Text)
	if err != nil {
		// Parse failures are recovered into the null-filled result; other
		// failures are real errors.
		if !errors.Is(err, extraction.ErrParse) {
			s.writeError(w, s.errorStatus(err), err)
			return
		}
		s.logger.Printf("extraction recovered: %v", err)
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) errorStatus(err error) int {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingestion.ErrEmptyDocument), errors.Is(err, ingestion.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}
