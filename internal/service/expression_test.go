package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exprgate/exprgate/internal/metrics"
	"github.com/exprgate/exprgate/internal/model"
)

func newExpressionService(store *fakeStore) (*ExpressionService, *metrics.InMemoryRecorder) {
	rec := metrics.NewInMemory()
	return NewExpressionService(store, discardLogger(), rec), rec
}

func TestExpressionService_ValueForGene(t *testing.T) {
	svc, rec := newExpressionService(newFakeStore())

	values, err := svc.ValueForGene(context.Background(), "exp1", "At1g01010")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"S1": 3.5, "S2": 1.2}, values)
	assert.Equal(t, uint64(1), rec.Snapshot().QueryCount["value_for_gene"])
}

func TestExpressionService_ValueForGeneAndSample(t *testing.T) {
	svc, _ := newExpressionService(newFakeStore())

	values, err := svc.ValueForGeneAndSample(context.Background(), "exp1", "At1g01010", "S2")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.2}, values)
}

func TestExpressionService_InvalidGeneNeverReachesStore(t *testing.T) {
	store := newFakeStore()
	svc, _ := newExpressionService(store)

	_, err := svc.ValueForGene(context.Background(), "exp1", "not-a-gene")
	assert.ErrorIs(t, err, model.ErrInvalidGeneID)

	_, err = svc.ValueForGeneAndSample(context.Background(), "exp1", "BRCA1", "S1")
	assert.ErrorIs(t, err, model.ErrInvalidGeneID)

	assert.Zero(t, store.calls)
}

func TestExpressionService_InvalidTableNeverReachesStore(t *testing.T) {
	store := newFakeStore()
	svc, _ := newExpressionService(store)

	for _, id := range []string{"", "a-b", "a b", `x";drop`} {
		_, err := svc.Samples(context.Background(), id)
		assert.ErrorIs(t, err, model.ErrInvalidTableID, id)
	}
	assert.Zero(t, store.calls)
}

func TestExpressionService_MissingTableIsNotFound(t *testing.T) {
	svc, _ := newExpressionService(newFakeStore())
	ctx := context.Background()

	_, err := svc.ValueForGene(ctx, "missing", "At1g01010")
	assert.ErrorIs(t, err, model.ErrTableNotFound)

	_, err = svc.Samples(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrTableNotFound)

	_, err = svc.Genes(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrTableNotFound)

	_, err = svc.FindGenes(ctx, "missing", "AT1G")
	assert.ErrorIs(t, err, model.ErrTableNotFound)

	exists, err := svc.TableExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExpressionService_DatastoreErrorsAreOpaque(t *testing.T) {
	var logs bytes.Buffer
	store := newFakeStore()
	store.fail = errBoom
	svc := NewExpressionService(store, slog.New(slog.NewTextHandler(&logs, nil)), nil)
	ctx := context.Background()

	_, err := svc.ValueForGene(ctx, "exp1", "At1g01010")
	require.ErrorIs(t, err, ErrInternal)
	assert.NotContains(t, err.Error(), "hunter2")
	assert.Contains(t, logs.String(), "connection refused")

	_, err = svc.Genes(ctx, "exp1")
	assert.ErrorIs(t, err, ErrInternal)

	_, err = svc.TableExists(ctx, "exp1")
	assert.ErrorIs(t, err, ErrInternal)
}

func TestExpressionService_MalformedTableIsInternal(t *testing.T) {
	store := newFakeStore()
	store.resolveE = model.ErrMalformedTable
	svc, _ := newExpressionService(store)

	_, err := svc.Samples(context.Background(), "exp1")
	assert.ErrorIs(t, err, ErrInternal)
}

func TestExpressionService_Lists(t *testing.T) {
	svc, _ := newExpressionService(newFakeStore())
	ctx := context.Background()

	samples, err := svc.Samples(ctx, "exp1")
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, samples)

	genes, err := svc.FindGenes(ctx, "exp1", "AT1G")
	require.NoError(t, err)
	assert.Equal(t, []string{"AT1G01020"}, genes)
}

func TestExpressionService_DropTable(t *testing.T) {
	store := newFakeStore()
	svc, _ := newExpressionService(store)
	ctx := context.Background()

	require.NoError(t, svc.DropTable(ctx, "exp1"))
	assert.Equal(t, []string{"exp1"}, store.dropped)

	assert.ErrorIs(t, svc.DropTable(ctx, "exp1"), model.ErrTableNotFound)
	assert.ErrorIs(t, svc.DropTable(ctx, "../x"), model.ErrInvalidTableID)
}
