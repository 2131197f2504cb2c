package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/exprgate/exprgate/internal/model"
)

// Common errors for account repository operations.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

// Validate reports whether key belongs to an account with uses left.
// A datastore failure yields KeyUnavailable together with the error.
func (r *Repository) Validate(ctx context.Context, key string) (model.KeyStatus, error) {
	if key == "" {
		return model.KeyUnknown, nil
	}

	var usesLeft int
	err := r.pool.QueryRow(ctx,
		`SELECT uses_left FROM accounts WHERE api_key = $1`, key,
	).Scan(&usesLeft)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.KeyUnknown, nil
		}
		return model.KeyUnavailable, fmt.Errorf("failed to validate API key: %w", err)
	}

	if usesLeft > 0 {
		return model.KeyValid, nil
	}
	return model.KeyExhausted, nil
}

// Decrement consumes one use of key. The check and the decrement are a
// single conditional UPDATE, so concurrent callers can never drive
// uses_left below zero. On refusal, a read classifies the reason.
func (r *Repository) Decrement(ctx context.Context, key string) (model.KeyStatus, error) {
	if key == "" {
		return model.KeyUnknown, nil
	}

	query := `
		UPDATE accounts
		SET uses_left = uses_left - 1
		WHERE api_key = $1 AND uses_left > 0
		RETURNING uses_left
	`

	var remaining int
	err := r.pool.QueryRow(ctx, query, key).Scan(&remaining)
	if err == nil {
		return model.KeyValid, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.KeyUnavailable, fmt.Errorf("failed to decrement API key uses: %w", err)
	}

	status, err := r.Validate(ctx, key)
	if err != nil {
		return model.KeyUnavailable, err
	}
	if status == model.KeyValid {
		// Uses were topped up between the two statements; nothing was consumed.
		return model.KeyExhausted, nil
	}
	return status, nil
}

// GetAccount retrieves the account owning key.
func (r *Repository) GetAccount(ctx context.Context, key string) (*model.Account, error) {
	query := `
		SELECT api_key, uses_left, first_name, last_name, email, created_at
		FROM accounts
		WHERE api_key = $1
	`

	var a model.Account
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&a.APIKey,
		&a.UsesLeft,
		&a.FirstName,
		&a.LastName,
		&a.Email,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &a, nil
}

// CreateAccount inserts a new account.
func (r *Repository) CreateAccount(ctx context.Context, a *model.Account) error {
	query := `
		INSERT INTO accounts (api_key, uses_left, first_name, last_name, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		a.APIKey,
		a.UsesLeft,
		a.FirstName,
		a.LastName,
		a.Email,
		a.CreatedAt,
	)
	if err != nil {
		if hasPgCode(err, pgUniqueViolation) {
			return ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// AddUses grants n more uses to key and returns the new balance.
func (r *Repository) AddUses(ctx context.Context, key string, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("uses to add must be positive, got %d", n)
	}

	var usesLeft int
	err := r.pool.QueryRow(ctx,
		`UPDATE accounts SET uses_left = uses_left + $2 WHERE api_key = $1 RETURNING uses_left`,
		key, n,
	).Scan(&usesLeft)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to add uses: %w", err)
	}

	return usesLeft, nil
}
