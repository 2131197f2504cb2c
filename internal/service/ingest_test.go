package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exprgate/exprgate/internal/ingest"
	"github.com/exprgate/exprgate/internal/metrics"
	"github.com/exprgate/exprgate/internal/model"
)

func TestIngestService_Load(t *testing.T) {
	loader := &fakeLoader{}
	rec := metrics.NewInMemory()
	svc := NewIngestService(loader, discardLogger(), rec)

	res, err := svc.Load(context.Background(), "exp2", strings.NewReader("Gene,S1\nAt1g01010,2.5\n"), ',', model.LoadReplace)
	require.NoError(t, err)

	assert.Equal(t, &IngestResult{Table: "exp2", Rows: 1, Mode: model.LoadReplace}, res)
	assert.Equal(t, "exp2", loader.table)
	assert.Equal(t, model.LoadReplace, loader.mode)
	assert.Equal(t, []model.Expression{{Gene: "At1g01010", Sample: "S1", Value: 2.5}}, loader.rows)
	assert.Equal(t, int64(1), rec.Snapshot().RowsIngested)
}

func TestIngestService_LoadErrors(t *testing.T) {
	ctx := context.Background()

	svc := NewIngestService(&fakeLoader{}, discardLogger(), nil)

	_, err := svc.Load(ctx, "bad-id", strings.NewReader("Gene,S1\nA,1\n"), ',', model.LoadAppend)
	assert.ErrorIs(t, err, model.ErrInvalidTableID)

	_, err = svc.Load(ctx, "ok", strings.NewReader("Gene,S1\nA,x\n"), ',', model.LoadAppend)
	assert.ErrorIs(t, err, ingest.ErrMalformed)

	_, err = svc.Load(ctx, "ok", strings.NewReader("Gene,S1\nA,\n"), ',', model.LoadAppend)
	assert.ErrorIs(t, err, ingest.ErrMalformed)

	refusing := NewIngestService(&fakeLoader{fail: fmt.Errorf("load: %w", model.ErrInvalidTableID)}, discardLogger(), nil)
	_, err = refusing.Load(ctx, "accounts", strings.NewReader("Gene,S1\nA,1\n"), ',', model.LoadReplace)
	assert.ErrorIs(t, err, model.ErrInvalidTableID)
	assert.NotErrorIs(t, err, ErrInternal)

	failing := NewIngestService(&fakeLoader{fail: errBoom}, discardLogger(), nil)
	_, err = failing.Load(ctx, "ok", strings.NewReader("Gene,S1\nA,1\n"), ',', model.LoadAppend)
	require.ErrorIs(t, err, ErrInternal)
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestIngestService_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matrix.tsv")
	require.NoError(t, os.WriteFile(path, []byte("Gene\tS1\nAt1g01010\t4\n"), 0o600))

	loader := &fakeLoader{}
	svc := NewIngestService(loader, discardLogger(), nil)

	res, err := svc.LoadFile(context.Background(), path, "/tmp/results/run_7.csv", model.LoadAppend)
	require.NoError(t, err)
	assert.Equal(t, "run_7", res.Table)
	assert.Equal(t, 4.0, loader.rows[0].Value)

	_, err = svc.LoadFile(context.Background(), filepath.Join(dir, "missing.csv"), "x", model.LoadAppend)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
