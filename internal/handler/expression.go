package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/exprgate/exprgate/internal/middleware"
)

// ExpressionQuerier answers expression table queries.
type ExpressionQuerier interface {
	ValueForGene(ctx context.Context, tableID, gene string) (map[string]float64, error)
	ValueForGeneAndSample(ctx context.Context, tableID, gene, sample string) ([]float64, error)
	Samples(ctx context.Context, tableID string) ([]string, error)
	Genes(ctx context.Context, tableID string) ([]string, error)
	FindGenes(ctx context.Context, tableID, substr string) ([]string, error)
	TableExists(ctx context.Context, tableID string) (bool, error)
	DropTable(ctx context.Context, tableID string) error
}

// ExpressionHandler handles HTTP requests for expression tables.
type ExpressionHandler struct {
	svc    ExpressionQuerier
	logger *slog.Logger
}

// NewExpressionHandler creates a new ExpressionHandler.
func NewExpressionHandler(svc ExpressionQuerier, logger *slog.Logger) *ExpressionHandler {
	return &ExpressionHandler{svc: svc, logger: logger}
}

// Value handles GET /value/{table_id}/{gene} and
// GET /value/{table_id}/{gene}/{sample}. Without a sample the result maps
// each sample to its value; with one it lists every matching value.
func (h *ExpressionHandler) Value(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, middleware.ParamTableID)
	gene := chi.URLParam(r, middleware.ParamGene)
	sample := chi.URLParam(r, "sample")

	if sample == "" {
		values, err := h.svc.ValueForGene(r.Context(), tableID, gene)
		if err != nil {
			handleError(w, r, h.logger, err)
			return
		}
		writeSuccess(w, values)
		return
	}

	values, err := h.svc.ValueForGeneAndSample(r.Context(), tableID, gene, sample)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, values)
}

// Samples handles GET /samples/{table_id}.
func (h *ExpressionHandler) Samples(w http.ResponseWriter, r *http.Request) {
	values, err := h.svc.Samples(r.Context(), chi.URLParam(r, middleware.ParamTableID))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, values)
}

// Genes handles GET /genes/{table_id}.
func (h *ExpressionHandler) Genes(w http.ResponseWriter, r *http.Request) {
	values, err := h.svc.Genes(r.Context(), chi.URLParam(r, middleware.ParamTableID))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, values)
}

// FindGene handles GET /find_gene/{table_id}/{substring}.
func (h *ExpressionHandler) FindGene(w http.ResponseWriter, r *http.Request) {
	values, err := h.svc.FindGenes(r.Context(),
		chi.URLParam(r, middleware.ParamTableID),
		chi.URLParam(r, "substring"),
	)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, values)
}

// TableExists handles GET /table_exists/{table_id}.
func (h *ExpressionHandler) TableExists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.svc.TableExists(r.Context(), chi.URLParam(r, middleware.ParamTableID))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, exists)
}

// DropTable handles GET /drop_table/{table_id}. The route must be mounted
// behind middleware.LoopbackOnly.
func (h *ExpressionHandler) DropTable(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DropTable(r.Context(), chi.URLParam(r, middleware.ParamTableID)); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, true)
}
