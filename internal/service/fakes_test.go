package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/exprgate/exprgate/internal/model"
	"github.com/exprgate/exprgate/internal/workflow"
)

var errBoom = errors.New("connection refused: host=db.internal password=hunter2")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	tables   map[string][]model.Expression
	fail     error
	calls    int
	dropped  []string
	resolveE error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tables: map[string][]model.Expression{
		"exp1": {
			{Gene: "At1g01010", Sample: "S1", Value: 3.5},
			{Gene: "At1g01010", Sample: "S2", Value: 1.2},
			{Gene: "AT1G01020", Sample: "S1", Value: 0.4},
		},
	}}
}

func (f *fakeStore) ResolveTable(ctx context.Context, id string) (*model.TableHandle, error) {
	f.calls++
	if f.resolveE != nil {
		return nil, f.resolveE
	}
	if _, ok := f.tables[id]; !ok {
		return nil, model.ErrTableNotFound
	}
	return &model.TableHandle{Name: id, Columns: []string{"index", "Gene", "Sample", "Value"}}, nil
}

func (f *fakeStore) TableExists(ctx context.Context, id string) (bool, error) {
	f.calls++
	if f.fail != nil {
		return false, f.fail
	}
	_, ok := f.tables[id]
	return ok, nil
}

func (f *fakeStore) DropTable(ctx context.Context, id string) error {
	f.calls++
	if _, ok := f.tables[id]; !ok {
		return model.ErrTableNotFound
	}
	delete(f.tables, id)
	f.dropped = append(f.dropped, id)
	return nil
}

func (f *fakeStore) ValueForGene(ctx context.Context, t *model.TableHandle, gene string) (map[string]float64, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	out := map[string]float64{}
	for _, row := range f.tables[t.Name] {
		if row.Gene == gene {
			out[row.Sample] = row.Value
		}
	}
	return out, nil
}

func (f *fakeStore) ValueForGeneAndSample(ctx context.Context, t *model.TableHandle, gene, sample string) ([]float64, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	out := []float64{}
	for _, row := range f.tables[t.Name] {
		if row.Gene == gene && row.Sample == sample {
			out = append(out, row.Value)
		}
	}
	return out, nil
}

func (f *fakeStore) DistinctSamples(ctx context.Context, t *model.TableHandle) ([]string, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	return []string{"S1", "S2"}, nil
}

func (f *fakeStore) DistinctGenes(ctx context.Context, t *model.TableHandle) ([]string, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	return []string{"AT1G01020", "At1g01010"}, nil
}

func (f *fakeStore) FindGenesContaining(ctx context.Context, t *model.TableHandle, substr string) ([]string, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	return []string{"AT1G01020"}, nil
}

type fakeLoader struct {
	mu    sync.Mutex
	table string
	rows  []model.Expression
	mode  model.LoadMode
	fail  error
}

func (f *fakeLoader) LoadExpressions(ctx context.Context, id string, rows []model.Expression, mode model.LoadMode) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, f.fail
	}
	f.table, f.rows, f.mode = id, rows, mode
	return int64(len(rows)), nil
}

type fakeEngine struct {
	mu        sync.Mutex
	submitted []map[string]any
	defs      []workflow.Definition
	submitErr error
	statusErr error
}

func (f *fakeEngine) Submit(ctx context.Context, def workflow.Definition, inputs map[string]any) (*workflow.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, inputs)
	f.defs = append(f.defs, def)
	return &workflow.Status{ID: "3b7c0b5e-6f0e-4a53-8d5e-2c4f3b8a9d10", Status: "Submitted"}, nil
}

func (f *fakeEngine) Status(ctx context.Context, jobID string) (*workflow.Status, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &workflow.Status{ID: jobID, Status: "Running"}, nil
}

type fakeLister struct {
	names []string
	err   error
}

func (f *fakeLister) ListBAM(ctx context.Context, folderID string) ([]string, error) {
	return f.names, f.err
}
