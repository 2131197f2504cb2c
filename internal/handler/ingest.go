package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/exprgate/exprgate/internal/auth"
	"github.com/exprgate/exprgate/internal/files"
	"github.com/exprgate/exprgate/internal/model"
	"github.com/exprgate/exprgate/internal/service"
)

// ExpressionIngester loads expression matrices into tables.
type ExpressionIngester interface {
	Load(ctx context.Context, tableID string, r io.Reader, delim rune, mode model.LoadMode) (*service.IngestResult, error)
	LoadFile(ctx context.Context, path, uid string, mode model.LoadMode) (*service.IngestResult, error)
}

// IngestHandler handles uploads that load straight into the datastore.
type IngestHandler struct {
	ingester ExpressionIngester
	uploads  *files.Store
	logger   *slog.Logger
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(ingester ExpressionIngester, uploads *files.Store, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{ingester: ingester, uploads: uploads, logger: logger}
}

// InsertRequest is the body of the workflow engine's load callback.
type InsertRequest struct {
	CSV       string `json:"csv"`
	UID       string `json:"uid"`
	Overwrite bool   `json:"overwrite"`
}

// CSVUpload handles POST /csv_upload. The file is kept under the caller's
// upload folder and loaded into the table named after it before the
// response is written. The form field overwrite=true replaces the table.
func (h *IngestHandler) CSVUpload(w http.ResponseWriter, r *http.Request) {
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

	mode := model.LoadModeFromOverwrite(r.FormValue("overwrite") == "true")
	result, err := h.ingester.LoadFile(r.Context(), path, filepath.Base(path), mode)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, result)
}

// Insert handles POST /insert, called by the workflow engine on the same
// host once a converted CSV is ready.
func (h *IngestHandler) Insert(w http.ResponseWriter, r *http.Request) {
	var req InsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.CSV == "" || req.UID == "" {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	result, err := h.ingester.LoadFile(r.Context(), req.CSV, req.UID, model.LoadModeFromOverwrite(req.Overwrite))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, result)
}
