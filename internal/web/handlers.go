package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// createImportRequest is the body of POST /api/imports.
type createImportRequest struct {
	HospitalID int64  `json:"hospitalId"`
	File       string `json:"file"`
	Encoding   string `json:"encoding,omitempty"`
}

// runAccepted is the body of a 202 from POST /api/imports/{id}/run.
type runAccepted struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthStatus{
		Status:  "ok",
		Imports: s.svc.Limiter().Status(),
		Time:    time.Now().UTC(),
	})
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	status := domain.JobStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.JobPending
	}
	switch status {
	case domain.JobPending, domain.JobRunning, domain.JobCompleted, domain.JobFailed:
	default:
		respondError(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, status))
		return
	}

	jobs, err := s.svc.Jobs(r.Context(), status, listLimit(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*domain.ImportJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	var req createImportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.File == "" {
		respondError(w, r, fmt.Errorf("%w: file is required", errBadRequest))
		return
	}

	job, err := s.svc.Enqueue(r.Context(), req.HospitalID, req.File, req.Encoding)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/imports/"+job.ID.String())
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := s.svc.Job(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleRunImport(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Start(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, runAccepted{ID: id, Status: "accepted"})
}

func (s *Server) handleListRejects(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	rejects, err := s.svc.Rejects(r.Context(), id, listLimit(r), parseIntParam(r, "offset", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if rejects == nil {
		rejects = []domain.RejectRecord{}
	}
	writeJSON(w, http.StatusOK, rejects)
}

// jobID parses the {id} URL parameter, writing a 400 when it is not a UUID.
func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: bad job id: %v", errBadRequest, err))
		return uuid.Nil, false
	}
	return id, true
}

func listLimit(r *http.Request) int {
	limit := parseIntParam(r, "limit", defaultListLimit)
	if limit == 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

// parseIntParam parses a non-negative integer query parameter, falling back
// to def when it is missing or invalid.
func parseIntParam(r *http.Request, name string, def int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return def
	}
	return i
}
