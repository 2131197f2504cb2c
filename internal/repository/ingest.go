package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/exprgate/exprgate/internal/model"
)

// LoadExpressions writes rows into the table named id. LoadAppend creates
// the table when missing and appends; LoadReplace drops and recreates it.
// Both run in one transaction and stream rows with COPY. A relation named id
// that is not an expression table is never touched and yields
// ErrInvalidTableID.
func (r *Repository) LoadExpressions(ctx context.Context, id string, rows []model.Expression, mode model.LoadMode) (int64, error) {
	table, err := quoteTable(id)
	if err != nil {
		return 0, err
	}

	var copied int64
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		exists, err := lockExpressionTable(ctx, tx, id)
		if err != nil {
			return err
		}

		if exists && mode == model.LoadReplace {
			if _, err := tx.Exec(ctx, "DROP TABLE "+table); err != nil {
				return fmt.Errorf("drop table: %w", err)
			}
			exists = false
		}

		if !exists {
			create := fmt.Sprintf(`
				CREATE TABLE %s (
					"index" BIGSERIAL PRIMARY KEY,
					"Gene" TEXT NOT NULL,
					"Sample" TEXT NOT NULL,
					"Value" DOUBLE PRECISION
				)
			`, table)
			if _, err := tx.Exec(ctx, create); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
			// Unnamed so the server picks a name free in the schema.
			if _, err := tx.Exec(ctx, fmt.Sprintf(`CREATE INDEX ON %s ("Gene")`, table)); err != nil {
				return fmt.Errorf("create index: %w", err)
			}
		}

		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{id},
			[]string{model.ColumnGene, model.ColumnSample, model.ColumnValue},
			pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
				return []any{rows[i].Gene, rows[i].Sample, rows[i].Value}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy rows: %w", err)
		}
		copied = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load expressions into %s: %w", id, err)
	}

	return copied, nil
}
