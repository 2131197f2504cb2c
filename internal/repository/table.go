package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/exprgate/exprgate/internal/model"
)

// quoteTable validates id against the identifier allow-list and returns it
// quoted for interpolation. Table names cannot be bound parameters.
func quoteTable(id string) (string, error) {
	if err := model.ValidateTableID(id); err != nil {
		return "", err
	}
	return pq.QuoteIdentifier(id), nil
}

// relkindTable is pg_class.relkind for an ordinary table.
const relkindTable = "r"

// querier is the read side shared by the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ResolveTable introspects the current schema for a table named exactly id.
func (r *Repository) ResolveTable(ctx context.Context, id string) (*model.TableHandle, error) {
	if err := model.ValidateTableID(id); err != nil {
		return nil, err
	}

	handle, err := describeTable(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	if len(handle.Columns) == 0 {
		return nil, model.ErrTableNotFound
	}
	if !handle.IsExpressionTable() {
		return nil, model.ErrMalformedTable
	}

	return handle, nil
}

func describeTable(ctx context.Context, q querier, id string) (*model.TableHandle, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect table: %w", err)
	}
	defer rows.Close()

	handle := &model.TableHandle{Name: id}
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		handle.Columns = append(handle.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return handle, nil
}

// relationKind returns the pg_class relkind of the relation named id in the
// current schema, or "" when there is none. Tables, indexes, sequences and
// views share one namespace.
func relationKind(ctx context.Context, q querier, id string) (string, error) {
	query := `
		SELECT c.relkind::text
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = current_schema() AND c.relname = $1
	`

	var kind string
	err := q.QueryRow(ctx, query, id).Scan(&kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up relation: %w", err)
	}
	return kind, nil
}

// TableExists reports whether a table named id exists. A missing table is
// not an error.
func (r *Repository) TableExists(ctx context.Context, id string) (bool, error) {
	if err := model.ValidateTableID(id); err != nil {
		return false, err
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}

	return exists, nil
}

// DropTable irreversibly drops the expression table named id. Relations
// that are not expression tables are refused with ErrInvalidTableID.
func (r *Repository) DropTable(ctx context.Context, id string) error {
	table, err := quoteTable(id)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		exists, err := lockExpressionTable(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return model.ErrTableNotFound
		}
		if _, err := tx.Exec(ctx, "DROP TABLE "+table); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, model.ErrTableNotFound) && !errors.Is(err, model.ErrInvalidTableID) {
		return fmt.Errorf("failed to drop %s: %w", id, err)
	}
	return err
}

// lockExpressionTable serializes writers on id for the rest of tx and
// reports whether an expression table named id exists. Any other relation
// under that name yields ErrInvalidTableID.
func lockExpressionTable(ctx context.Context, tx pgx.Tx, id string) (bool, error) {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", id); err != nil {
		return false, fmt.Errorf("failed to lock table name: %w", err)
	}

	kind, err := relationKind(ctx, tx, id)
	if err != nil {
		return false, err
	}
	switch kind {
	case "":
		return false, nil
	case relkindTable:
	default:
		return false, fmt.Errorf("%w: %q is not a table", model.ErrInvalidTableID, id)
	}

	handle, err := describeTable(ctx, tx, id)
	if err != nil {
		return false, err
	}
	if !handle.IsExpressionTable() {
		return false, fmt.Errorf("%w: %q is not an expression table", model.ErrInvalidTableID, id)
	}
	return true, nil
}
