package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/exprgate/exprgate/internal/ingest"
	"github.com/exprgate/exprgate/internal/metrics"
	"github.com/exprgate/exprgate/internal/model"
)

// ExpressionLoader bulk-loads long-form rows into a dataset table.
type ExpressionLoader interface {
	LoadExpressions(ctx context.Context, id string, rows []model.Expression, mode model.LoadMode) (int64, error)
}

// IngestResult describes a completed load.
type IngestResult struct {
	Table string         `json:"table"`
	Rows  int64          `json:"rows"`
	Mode  model.LoadMode `json:"mode"`
}

// IngestService melts uploaded matrices and loads them into tables.
type IngestService struct {
	loader  ExpressionLoader
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewIngestService creates a new IngestService.
func NewIngestService(loader ExpressionLoader, logger *slog.Logger, recorder metrics.Recorder) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &IngestService{loader: loader, logger: logger, metrics: recorder}
}

// Load melts r and loads it into tableID.
func (s *IngestService) Load(ctx context.Context, tableID string, r io.Reader, delim rune, mode model.LoadMode) (*IngestResult, error) {
	if err := model.ValidateTableID(tableID); err != nil {
		return nil, err
	}

	rows, err := ingest.Melt(r, delim)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no values", ingest.ErrMalformed)
	}

	n, err := s.loader.LoadExpressions(ctx, tableID, rows, mode)
	if err != nil {
		if errors.Is(err, model.ErrInvalidTableID) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "ingest failed",
			slog.String("table", tableID),
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: load", ErrInternal)
	}

	s.metrics.AddRowsIngested(n)
	s.logger.InfoContext(ctx, "expression table loaded",
		slog.String("table", tableID),
		slog.String("mode", string(mode)),
		slog.Int64("rows", n),
	)

	return &IngestResult{Table: tableID, Rows: n, Mode: mode}, nil
}

// LoadFile loads the file at path into the table named after uid.
func (s *IngestService) LoadFile(ctx context.Context, path, uid string, mode model.LoadMode) (*IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: file not found", ErrInvalidRequest)
		}
		s.logger.ErrorContext(ctx, "failed to open ingest file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: open", ErrInternal)
	}
	defer f.Close()

	return s.Load(ctx, ingest.TableIDFromFilename(uid), f, ingest.DelimiterFor(path), mode)
}
