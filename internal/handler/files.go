package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/exprgate/exprgate/internal/auth"
	"github.com/exprgate/exprgate/internal/files"
)

// FilesHandler serves the per-key document store.
type FilesHandler struct {
	store  *files.Store
	logger *slog.Logger
}

// NewFilesHandler creates a new FilesHandler.
func NewFilesHandler(store *files.Store, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{store: store, logger: logger}
}

// Save handles POST /save. The part's Content-Type picks the extension;
// the stored name is returned.
func (h *FilesHandler) Save(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	name, err := h.store.Save(
		auth.APIKeyFromContext(r.Context()),
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, name)
}

// List handles POST /get_file_list.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.List(auth.APIKeyFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, files.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No folder found")
			return
		}
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, names)
}

// Get handles GET /get_file/{file_id} and streams the raw file.
func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file_id")

	f, err := h.store.Open(auth.APIKeyFromContext(r.Context()), name)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}
