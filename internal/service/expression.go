package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/exprgate/exprgate/internal/metrics"
	"github.com/exprgate/exprgate/internal/model"
)

// ExpressionStore is the datastore surface the query engine needs.
type ExpressionStore interface {
	ResolveTable(ctx context.Context, id string) (*model.TableHandle, error)
	TableExists(ctx context.Context, id string) (bool, error)
	DropTable(ctx context.Context, id string) error
	ValueForGene(ctx context.Context, t *model.TableHandle, gene string) (map[string]float64, error)
	ValueForGeneAndSample(ctx context.Context, t *model.TableHandle, gene, sample string) ([]float64, error)
	DistinctSamples(ctx context.Context, t *model.TableHandle) ([]string, error)
	DistinctGenes(ctx context.Context, t *model.TableHandle) ([]string, error)
	FindGenesContaining(ctx context.Context, t *model.TableHandle, substr string) ([]string, error)
}

// ExpressionService runs gene/sample queries against dataset tables.
//
// Identifier and gene validation happen before any datastore access.
// A missing table is always model.ErrTableNotFound; every other datastore
// failure, including a table without the expression columns, becomes
// ErrInternal and is logged with its cause.
type ExpressionService struct {
	store   ExpressionStore
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewExpressionService creates a new ExpressionService.
func NewExpressionService(store ExpressionStore, logger *slog.Logger, recorder metrics.Recorder) *ExpressionService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ExpressionService{store: store, logger: logger, metrics: recorder}
}

// ValueForGene returns sample -> value for gene. Later rows win.
func (s *ExpressionService) ValueForGene(ctx context.Context, tableID, gene string) (map[string]float64, error) {
	if !model.IsValidGeneID(gene) {
		return nil, model.ErrInvalidGeneID
	}
	defer s.observe("value_for_gene", time.Now())

	t, err := s.resolve(ctx, tableID)
	if err != nil {
		return nil, err
	}
	values, err := s.store.ValueForGene(ctx, t, gene)
	if err != nil {
		return nil, s.internal(ctx, "value_for_gene", tableID, err)
	}
	return values, nil
}

// ValueForGeneAndSample returns every value for (gene, sample) in row order.
func (s *ExpressionService) ValueForGeneAndSample(ctx context.Context, tableID, gene, sample string) ([]float64, error) {
	if !model.IsValidGeneID(gene) {
		return nil, model.ErrInvalidGeneID
	}
	defer s.observe("value_for_gene_and_sample", time.Now())

	t, err := s.resolve(ctx, tableID)
	if err != nil {
		return nil, err
	}
	values, err := s.store.ValueForGeneAndSample(ctx, t, gene, sample)
	if err != nil {
		return nil, s.internal(ctx, "value_for_gene_and_sample", tableID, err)
	}
	return values, nil
}

// Samples returns the distinct sample names of a table.
func (s *ExpressionService) Samples(ctx context.Context, tableID string) ([]string, error) {
	return s.list(ctx, "distinct_samples", tableID, s.store.DistinctSamples)
}

// Genes returns the distinct gene ids of a table.
func (s *ExpressionService) Genes(ctx context.Context, tableID string) ([]string, error) {
	return s.list(ctx, "distinct_genes", tableID, s.store.DistinctGenes)
}

// FindGenes returns distinct genes containing substr, case-sensitively.
func (s *ExpressionService) FindGenes(ctx context.Context, tableID, substr string) ([]string, error) {
	return s.list(ctx, "find_genes", tableID, func(ctx context.Context, t *model.TableHandle) ([]string, error) {
		return s.store.FindGenesContaining(ctx, t, substr)
	})
}

// TableExists reports whether a dataset table exists.
func (s *ExpressionService) TableExists(ctx context.Context, tableID string) (bool, error) {
	if err := model.ValidateTableID(tableID); err != nil {
		return false, err
	}
	exists, err := s.store.TableExists(ctx, tableID)
	if err != nil {
		return false, s.internal(ctx, "table_exists", tableID, err)
	}
	return exists, nil
}

// DropTable removes a dataset table. Callers gate access.
func (s *ExpressionService) DropTable(ctx context.Context, tableID string) error {
	if err := model.ValidateTableID(tableID); err != nil {
		return err
	}
	if err := s.store.DropTable(ctx, tableID); err != nil {
		if errors.Is(err, model.ErrTableNotFound) {
			return err
		}
		return s.internal(ctx, "drop_table", tableID, err)
	}
	s.logger.Info("table dropped", slog.String("table", tableID))
	return nil
}

func (s *ExpressionService) list(ctx context.Context, op, tableID string, fn func(context.Context, *model.TableHandle) ([]string, error)) ([]string, error) {
	defer s.observe(op, time.Now())

	t, err := s.resolve(ctx, tableID)
	if err != nil {
		return nil, err
	}
	values, err := fn(ctx, t)
	if err != nil {
		return nil, s.internal(ctx, op, tableID, err)
	}
	return values, nil
}

func (s *ExpressionService) resolve(ctx context.Context, tableID string) (*model.TableHandle, error) {
	if err := model.ValidateTableID(tableID); err != nil {
		return nil, err
	}
	t, err := s.store.ResolveTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, model.ErrTableNotFound) || errors.Is(err, model.ErrInvalidTableID) {
			return nil, err
		}
		return nil, s.internal(ctx, "resolve_table", tableID, err)
	}
	return t, nil
}

func (s *ExpressionService) internal(ctx context.Context, op, tableID string, err error) error {
	s.logger.ErrorContext(ctx, "expression query failed",
		slog.String("op", op),
		slog.String("table", tableID),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%w: %s", ErrInternal, op)
}

func (s *ExpressionService) observe(op string, start time.Time) {
	s.metrics.ObserveQueryDuration(op, time.Since(start))
}
