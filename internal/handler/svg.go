package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/exprgate/exprgate/internal/svg"
)

// SVGHandler cleans caller-supplied SVG documents.
type SVGHandler struct {
	logger *slog.Logger
}

// NewSVGHandler creates a new SVGHandler.
func NewSVGHandler(logger *slog.Logger) *SVGHandler {
	return &SVGHandler{logger: logger}
}

// CleanRequest is the body of POST /clean_svg.
type CleanRequest struct {
	SVG string `json:"svg"`
}

// Clean handles POST /clean_svg.
func (h *SVGHandler) Clean(w http.ResponseWriter, r *http.Request) {
	var req CleanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.SVG) == "" {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	cleaned, err := svg.Clean(req.SVG)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, cleaned)
}
