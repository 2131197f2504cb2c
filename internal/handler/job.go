package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/exprgate/exprgate/internal/auth"
	"github.com/exprgate/exprgate/internal/files"
	"github.com/exprgate/exprgate/internal/service"
	"github.com/exprgate/exprgate/internal/workflow"
)

// JobSubmitter submits and tracks workflow jobs.
type JobSubmitter interface {
	Summarize(ctx context.Context, apiKey string, req service.SummarizeRequest) (*service.SummarizeResult, error)
	SubmitTSV(ctx context.Context, apiKey, path, email string, overwrite bool) (*workflow.Status, error)
	Progress(ctx context.Context, jobID string) (*workflow.Status, error)
}

// JobHandler handles HTTP requests that reach the workflow engine.
type JobHandler struct {
	jobs    JobSubmitter
	uploads *files.Store
	logger  *slog.Logger
}

// NewJobHandler creates a new JobHandler. uploads holds TSV files until
// the engine picks them up.
func NewJobHandler(jobs JobSubmitter, uploads *files.Store, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, uploads: uploads, logger: logger}
}

// Summarize handles POST /summarize.
func (h *JobHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req service.SummarizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	result, err := h.jobs.Summarize(r.Context(), auth.APIKeyFromContext(r.Context()), req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, result)
}

// Progress handles GET /progress/{job_id}. The data is the engine's status
// string.
func (h *JobHandler) Progress(w http.ResponseWriter, r *http.Request) {
	status, err := h.jobs.Progress(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, status.Status)
}

// TSVUpload handles POST /tsv_upload. The multipart form must already be
// parsed by middleware.RequireFile.
func (h *JobHandler) TSVUpload(w http.ResponseWriter, r *http.Request) {
	key := auth.APIKeyFromContext(r.Context())

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	path, err := h.uploads.Put(key, header.Filename, file)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	status, err := h.jobs.SubmitTSV(r.Context(), key, path, r.FormValue("email"), r.FormValue("overwrite") == "true")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, status)
}
