package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/exprgate/exprgate/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetAccountsSchema drops and recreates the accounts table for tests.
func ResetAccountsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigration(ctx, pool, "000001_accounts")
}

// DropTables drops expression tables created by a test.
func DropTables(ctx context.Context, pool *pgxpool.Pool, names ...string) error {
	for _, name := range names {
		if err := model.ValidateTableID(name); err != nil {
			return fmt.Errorf("drop %q: %w", name, err)
		}
		if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, name)); err != nil {
			return fmt.Errorf("drop %q: %w", name, err)
		}
	}
	return nil
}

// SeedExpressionTable creates a table with the expression layout and inserts
// rows in order.
func SeedExpressionTable(ctx context.Context, pool *pgxpool.Pool, name string, rows []model.Expression) error {
	if err := DropTables(ctx, pool, name); err != nil {
		return err
	}
	create := fmt.Sprintf(`CREATE TABLE "%s" (
		"index" BIGSERIAL PRIMARY KEY,
		"Gene" TEXT NOT NULL,
		"Sample" TEXT NOT NULL,
		"Value" DOUBLE PRECISION
	)`, name)
	if _, err := pool.Exec(ctx, create); err != nil {
		return fmt.Errorf("create %q: %w", name, err)
	}
	for _, row := range rows {
		insert := fmt.Sprintf(`INSERT INTO "%s" ("Gene", "Sample", "Value") VALUES ($1, $2, $3)`, name)
		if _, err := pool.Exec(ctx, insert, row.Gene, row.Sample, row.Value); err != nil {
			return fmt.Errorf("insert into %q: %w", name, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, name string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downPath := filepath.Join(root, "migrations", name+".down.sql")
	upPath := filepath.Join(root, "migrations", name+".up.sql")

	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		return fmt.Errorf("read %s down migration: %w", name, err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		return fmt.Errorf("apply %s down migration: %w", name, err)
	}

	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		return fmt.Errorf("read %s up migration: %w", name, err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		return fmt.Errorf("apply %s up migration: %w", name, err)
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestAccount creates a test account with the given quota.
func NewTestAccount(t testing.TB, usesLeft int) *model.Account {
	t.Helper()
	now := time.Now().UTC()
	return &model.Account{
		APIKey:    UniqueID("key"),
		UsesLeft:  usesLeft,
		FirstName: "Test",
		LastName:  "User",
		Email:     fmt.Sprintf("test-%d@example.org", now.UnixNano()),
		CreatedAt: now,
	}
}

// UniqueTableID generates a unique, valid table identifier for tests.
func UniqueTableID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
