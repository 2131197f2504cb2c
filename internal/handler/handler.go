// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/exprgate/exprgate/internal/files"
	"github.com/exprgate/exprgate/internal/ingest"
	"github.com/exprgate/exprgate/internal/middleware"
	"github.com/exprgate/exprgate/internal/model"
	"github.com/exprgate/exprgate/internal/service"
	"github.com/exprgate/exprgate/internal/svg"
	"github.com/exprgate/exprgate/internal/workflow"
)

// Response messages.
const (
	msgInvalidJSON   = "Invalid request body"
	msgNoFile        = "No file provided"
	msgTableNotFound = "Table not found"
	msgEngine        = "Workflow engine unavailable"
)

// Envelope is the body of every gateway response.
type Envelope struct {
	WasSuccessful bool   `json:"wasSuccessful"`
	Data          any    `json:"data,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Handler serves the fallback routes.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a 200 success envelope. data is always present,
// including false, empty lists and empty objects.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, struct {
		WasSuccessful bool `json:"wasSuccessful"`
		Data          any  `json:"data"`
	}{true, data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Error: message})
}

// errorResponse classifies err for the client. Anything unrecognized is an
// internal error whose cause stays in the log.
func errorResponse(err error) (int, string) {
	var unknownSpecies *workflow.UnknownSpeciesError
	switch {
	case errors.As(err, &unknownSpecies):
		return http.StatusBadRequest, "Unknown species; supported: " + strings.Join(unknownSpecies.Supported, ", ")
	case errors.Is(err, model.ErrInvalidTableID):
		return http.StatusBadRequest, "Invalid table ID"
	case errors.Is(err, model.ErrInvalidGeneID):
		return http.StatusBadRequest, "Invalid gene ID"
	case errors.Is(err, workflow.ErrUnknownSpecies):
		return http.StatusBadRequest, "Unknown species"
	case errors.Is(err, ingest.ErrMalformed),
		errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidJobID):
		return http.StatusBadRequest, "Invalid job ID"
	case errors.Is(err, files.ErrUnsupportedType):
		return http.StatusBadRequest, "Invalid file type"
	case errors.Is(err, files.ErrInvalidName):
		return http.StatusBadRequest, "Invalid file name"
	case errors.Is(err, svg.ErrInvalidSVG):
		return http.StatusBadRequest, "Invalid SVG document"
	case errors.Is(err, model.ErrTableNotFound):
		return http.StatusNotFound, msgTableNotFound
	case errors.Is(err, files.ErrNotFound):
		return http.StatusNotFound, "File not found"
	case errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, "Job not found"
	case errors.Is(err, service.ErrEngineUnavailable):
		return http.StatusBadGateway, msgEngine
	default:
		return http.StatusInternalServerError, middleware.MsgInternal
	}
}

// handleError writes the classified error and logs server-side failures.
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, message := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("error", err.Error()),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
	}
	writeError(w, status, message)
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeDecodeError answers a body that failed to decode. Bodies cut off by
// MaxBodySize get 413; everything else is a malformed request.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, middleware.MsgTooLarge)
		return
	}
	writeError(w, http.StatusBadRequest, msgInvalidJSON)
}
