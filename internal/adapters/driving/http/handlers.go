package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	_ "github.com/custodia-labs/sercha-originality/docs" // registers the API document
	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// readyTimeout bounds each dependency ping of the readiness check
const readyTimeout = 2 * time.Second

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports the state of every dependency
// @Description Readiness status per dependency
type ReadyResponse struct {
	Status   string                 `json:"status" example:"ready"`
	Checks   map[string]string      `json:"checks"`
	Semantic *domain.SemanticStatus `json:"semantic,omitempty"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// CheckResponse is a report plus the id it was recorded under
// @Description Originality report of a checked document
type CheckResponse struct {
	CheckID string `json:"check_id,omitempty" example:"5f0c6f4e-3a8e-4b8e-9f57-1d2a7f1c0b11"`
	*domain.PlagiarismReport
}

// CitationResponse lists citation suggestions
// @Description Citation suggestions for a document
type CitationResponse struct {
	Suggestions      []domain.CitationSuggestion `json:"suggestions"`
	TotalSuggestions int                         `json:"total_suggestions" example:"2"`
}

// HistoryResponse lists the caller's recent checks
// @Description Check history of the caller, newest first
type HistoryResponse struct {
	Checks []domain.CheckSummary `json:"checks"`
	Count  int                   `json:"count" example:"3"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the corpus store, embedding cache and task queue
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse  "A dependency is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string)}
	status := http.StatusOK

	for _, name := range s.dependencyNames() {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		err := s.dependencies[name].Ping(ctx)
		cancel()
		if err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	if s.semantic != nil {
		semantic := s.semantic.SemanticStatus()
		resp.Semantic = &semantic
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleSwaggerDoc serves the OpenAPI document
func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swaggerDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api document not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// Plagiarism endpoints

// handleCheck godoc
// @Summary      Check a document
// @Description  Runs the fingerprint, n-gram and semantic layers over the text and returns the originality report. The report is recorded in the caller's history when history is enabled.
// @Tags         Plagiarism
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.CheckRequest  true  "Document and options"
// @Success      200      {object}  CheckResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input or options"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      503      {object}  ErrorResponse  "Corpus unavailable"
// @Router       /plagiarism/check [post]
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.CheckRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.OwnerID = authCtx.Subject

	report, err := s.checkService.Check(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "check failed")
		return
	}

	resp := CheckResponse{PlagiarismReport: report}
	if s.reportService != nil {
		record, err := s.reportService.Record(r.Context(), authCtx.Subject, report, len(req.Text))
		if err != nil {
			log.Printf("failed to record check for %s: %v", authCtx.Subject, err)
		} else {
			resp.CheckID = record.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSuggestCitations godoc
// @Summary      Suggest citations
// @Description  Returns sources that claim-like passages resemble without being copied. Requires a configured embedding provider.
// @Tags         Plagiarism
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.CheckRequest  true  "Document and options"
// @Success      200      {object}  CitationResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input or options"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      503      {object}  ErrorResponse  "Semantic layer unavailable"
// @Router       /plagiarism/citations/suggest [post]
func (s *Server) handleSuggestCitations(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckRequest
	if !s.decode(w, r, &req) {
		return
	}
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		req.OwnerID = authCtx.Subject
	}

	suggestions, err := s.checkService.SuggestCitations(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "citation suggestion failed")
		return
	}
	if suggestions == nil {
		suggestions = []domain.CitationSuggestion{}
	}

	writeJSON(w, http.StatusOK, CitationResponse{
		Suggestions:      suggestions,
		TotalSuggestions: len(suggestions),
	})
}

// handleHistory godoc
// @Summary      Check history
// @Description  Lists the caller's most recent checks, newest first
// @Tags         Plagiarism
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum number of checks (default 20, max 100)"
// @Success      200    {object}  HistoryResponse
// @Failure      400    {object}  ErrorResponse  "Invalid limit"
// @Failure      401    {object}  ErrorResponse  "Unauthorized"
// @Failure      503    {object}  ErrorResponse  "History not enabled"
// @Router       /plagiarism/history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w) {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	checks, err := s.reportService.History(r.Context(), GetAuthContext(r.Context()), limit)
	if err != nil {
		writeServiceError(w, err, "failed to list history")
		return
	}
	if checks == nil {
		checks = []domain.CheckSummary{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Checks: checks, Count: len(checks)})
}

// handleGetReport godoc
// @Summary      Get a recorded check
// @Description  Returns a recorded check with its full report. Only the owner or an admin may read it.
// @Tags         Plagiarism
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Check ID"
// @Success      200  {object}  domain.CheckRecord
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Not the owner"
// @Failure      404  {object}  ErrorResponse  "Check not found"
// @Router       /plagiarism/reports/{id} [get]
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w) {
		return
	}

	record, err := s.reportService.Get(r.Context(), GetAuthContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get report")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleDeleteReport godoc
// @Summary      Delete a recorded check
// @Description  Removes a recorded check. Only the owner or an admin may delete it.
// @Tags         Plagiarism
// @Security     BearerAuth
// @Param        id   path  string  true  "Check ID"
// @Success      204  "Deleted"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Not the owner"
// @Failure      404  {object}  ErrorResponse  "Check not found"
// @Router       /plagiarism/reports/{id} [delete]
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w) {
		return
	}

	if err := s.reportService.Delete(r.Context(), GetAuthContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "failed to delete report")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Corpus endpoints

// handleAddSource godoc
// @Summary      Add a source
// @Description  Adds a reference document to the corpus (admin only). With async=true the source is queued for the worker and the task is returned.
// @Tags         Corpus
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.NewSourceRequest  true  "Source document"
// @Param        async    query     bool                     false "Queue ingestion instead of waiting for it"
// @Success      201      {object}  domain.Source
// @Success      202      {object}  domain.Task
// @Failure      400      {object}  ErrorResponse  "Invalid source"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      409      {object}  ErrorResponse  "Source exists or ingest in progress"
// @Router       /corpus/sources [post]
func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req domain.NewSourceRequest
	if !s.decode(w, r, &req) {
		return
	}

	async := false
	if v := r.URL.Query().Get("async"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "async must be a boolean")
			return
		}
		async = b
	}

	if async {
		task, err := s.corpusService.EnqueueSource(r.Context(), req)
		if err != nil {
			writeServiceError(w, err, "failed to queue source")
			return
		}
		writeJSON(w, http.StatusAccepted, task)
		return
	}

	source, err := s.corpusService.AddSource(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "failed to add source")
		return
	}

	writeJSON(w, http.StatusCreated, source)
}

// handleGetSource godoc
// @Summary      Get a source
// @Description  Returns a corpus source by ID
// @Tags         Corpus
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Source ID"
// @Success      200  {object}  domain.Source
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Source not found"
// @Router       /corpus/sources/{id} [get]
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	source, err := s.corpusService.GetSource(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get source")
		return
	}

	writeJSON(w, http.StatusOK, source)
}

// handleCorpusStats godoc
// @Summary      Corpus statistics
// @Description  Returns the corpus version, source count, total words and embedded source count
// @Tags         Corpus
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.CorpusStats
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      503  {object}  ErrorResponse  "Corpus unavailable"
// @Router       /corpus/stats [get]
func (s *Server) handleCorpusStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.corpusService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to get corpus stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Helper functions

// decode reads a JSON body into v, writing a 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) historyEnabled(w http.ResponseWriter) bool {
	if s.reportService == nil {
		writeError(w, http.StatusServiceUnavailable, "check history is not enabled")
		return false
	}
	return true
}

// writeServiceError maps domain errors to status codes. Errors without a
// mapping are logged and answered with fallback.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrIngestInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCorpusUnavailable), errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("%s: %v", fallback, err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
