package middleware

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/exprgate/exprgate/internal/model"
)

// Path parameter names shared with the router.
const (
	ParamTableID = "table_id"
	ParamGene    = "gene"
)

// ValidateExpressionParams rejects malformed table and gene path
// parameters with 400 before quota is consumed. Parameters absent from the
// route are not checked.
func ValidateExpressionParams(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if hasParam(rctx, ParamTableID) {
				if err := model.ValidateTableID(chi.URLParam(r, ParamTableID)); err != nil {
					writeError(w, http.StatusBadRequest, "Invalid table ID")
					return
				}
			}
			if hasParam(rctx, ParamGene) && !model.IsValidGeneID(chi.URLParam(r, ParamGene)) {
				writeError(w, http.StatusBadRequest, "Invalid gene ID")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireFile rejects multipart requests without a "file" part with 400.
// maxMemory is passed to ParseMultipartForm; larger parts spill to disk.
func RequireFile(maxMemory int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(maxMemory); err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					writeError(w, http.StatusRequestEntityTooLarge, MsgTooLarge)
					return
				}
				writeError(w, http.StatusBadRequest, "No file provided")
				return
			}
			if fhs := r.MultipartForm.File["file"]; len(fhs) == 0 || fhs[0].Filename == "" {
				writeError(w, http.StatusBadRequest, "No file provided")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasParam(rctx *chi.Context, name string) bool {
	for _, key := range rctx.URLParams.Keys {
		if key == name {
			return true
		}
	}
	return false
}
