package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/exprgate/exprgate/internal/model"
)

// ValueForGene returns every sample value recorded for gene, keyed by
// sample. Rows are read in insertion order, so a later duplicate sample
// overwrites an earlier one.
func (r *Repository) ValueForGene(ctx context.Context, t *model.TableHandle, gene string) (map[string]float64, error) {
	table, err := quoteTable(t.Name)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT "Sample"::text, "Value"::double precision
		FROM %s
		WHERE "Gene" = $1 AND "Value" IS NOT NULL
		ORDER BY %s
	`, table, orderColumn(t))

	rows, err := r.pool.Query(ctx, query, gene)
	if err != nil {
		return nil, fmt.Errorf("failed to query values for gene: %w", err)
	}
	defer rows.Close()

	values := make(map[string]float64)
	for rows.Next() {
		var sample string
		var value float64
		if err := rows.Scan(&sample, &value); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values[sample] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating values: %w", err)
	}

	return values, nil
}

// ValueForGeneAndSample returns all values for gene in sample, in row order.
// Duplicates are kept.
func (r *Repository) ValueForGeneAndSample(ctx context.Context, t *model.TableHandle, gene, sample string) ([]float64, error) {
	table, err := quoteTable(t.Name)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT "Value"::double precision
		FROM %s
		WHERE "Gene" = $1 AND "Sample"::text = $2 AND "Value" IS NOT NULL
		ORDER BY %s
	`, table, orderColumn(t))

	rows, err := r.pool.Query(ctx, query, gene, sample)
	if err != nil {
		return nil, fmt.Errorf("failed to query values for gene and sample: %w", err)
	}

	values, err := pgx.CollectRows(rows, pgx.RowTo[float64])
	if err != nil {
		return nil, fmt.Errorf("failed to collect values: %w", err)
	}
	if values == nil {
		values = []float64{}
	}

	return values, nil
}

// DistinctSamples returns the sorted set of samples in the table.
func (r *Repository) DistinctSamples(ctx context.Context, t *model.TableHandle) ([]string, error) {
	return r.distinct(ctx, t, `"Sample"::text`, "", nil)
}

// DistinctGenes returns the sorted set of genes in the table.
func (r *Repository) DistinctGenes(ctx context.Context, t *model.TableHandle) ([]string, error) {
	return r.distinct(ctx, t, `"Gene"::text`, "", nil)
}

// FindGenesContaining returns the sorted set of genes containing substr.
// Matching is case-sensitive and literal; LIKE wildcards have no meaning.
func (r *Repository) FindGenesContaining(ctx context.Context, t *model.TableHandle, substr string) ([]string, error) {
	return r.distinct(ctx, t, `"Gene"::text`, `strpos("Gene"::text, $1) > 0`, []any{substr})
}

// distinct projects column over the table, optionally filtered.
func (r *Repository) distinct(ctx context.Context, t *model.TableHandle, column, where string, args []any) ([]string, error) {
	table, err := quoteTable(t.Name)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL", column, table, column)
	if where != "" {
		query += " AND " + where
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct values: %w", err)
	}

	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect distinct values: %w", err)
	}
	if values == nil {
		values = []string{}
	}

	sort.Strings(values)
	return values, nil
}

// orderColumn returns the ORDER BY expression that reproduces insertion
// order. Tables without an index column fall back to physical order.
func orderColumn(t *model.TableHandle) string {
	if t.HasColumn(model.ColumnIndex) {
		return `"index"`
	}
	return "ctid"
}
