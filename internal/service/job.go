package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/exprgate/exprgate/internal/metrics"
	"github.com/exprgate/exprgate/internal/model"
	"github.com/exprgate/exprgate/internal/workflow"
)

// WorkflowClient submits jobs to and queries the workflow engine.
type WorkflowClient interface {
	Submit(ctx context.Context, def workflow.Definition, inputs map[string]any) (*workflow.Status, error)
	Status(ctx context.Context, jobID string) (*workflow.Status, error)
}

// FolderLister lists BAM files in a storage folder.
type FolderLister interface {
	ListBAM(ctx context.Context, folderID string) ([]string, error)
}

// SummarizeRequest is the body of a summarization submission.
type SummarizeRequest struct {
	Species   string   `json:"species"`
	Email     string   `json:"email"`
	Aliases   []string `json:"aliases"`
	CSVEmail  string   `json:"csvEmail"`
	Overwrite bool     `json:"overwrite"`
	FolderID  string   `json:"folderId"`
}

// Validate checks that the fields the workflow needs are present.
func (r *SummarizeRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Species) == "" {
		missing = append(missing, "species")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.FolderID) == "" {
		missing = append(missing, "folderId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// SummarizeResult is returned to the caller after submission.
type SummarizeResult struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Files  []string `json:"files"`
}

// JobService builds workflow inputs and forwards them to the engine.
// Submissions are not retried and not deduplicated.
type JobService struct {
	engine  WorkflowClient
	lister  FolderLister
	catalog *workflow.Catalog
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewJobService creates a new JobService. lister may be nil, in which case
// summarization results carry no file list.
func NewJobService(engine WorkflowClient, lister FolderLister, catalog *workflow.Catalog, logger *slog.Logger, recorder metrics.Recorder) *JobService {
	if catalog == nil {
		catalog = workflow.DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &JobService{
		engine:  engine,
		lister:  lister,
		catalog: catalog,
		logger:  logger,
		metrics: recorder,
	}
}

// Summarize submits a summarization job for the BAM files in req.FolderID
// and lists those files alongside. A listing failure is logged and yields
// an empty file list; it does not fail the submission.
func (s *JobService) Summarize(ctx context.Context, apiKey string, req SummarizeRequest) (*SummarizeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	gtf, err := s.catalog.Annotation(req.Species)
	if err != nil {
		return nil, err
	}
	def, err := s.catalog.Workflow(workflow.Summarize)
	if err != nil {
		return nil, err
	}

	aliases := req.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	inputs := def.Inputs(map[string]any{
		"folderId":  req.FolderID,
		"species":   req.Species,
		"gtf":       gtf,
		"aliases":   aliases,
		"id":        apiKey,
		"email":     req.Email,
		"csvEmail":  req.CSVEmail,
		"overwrite": string(model.LoadModeFromOverwrite(req.Overwrite)),
	})

	var status *workflow.Status
	files := []string{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		status, err = s.submit(gctx, workflow.Summarize, def, inputs)
		return err
	})
	if s.lister != nil {
		g.Go(func() error {
			names, err := s.lister.ListBAM(gctx, req.FolderID)
			if err != nil {
				s.logger.WarnContext(ctx, "folder listing failed",
					slog.String("folder_id", req.FolderID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			files = names
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &SummarizeResult{ID: status.ID, Status: status.Status, Files: files}, nil
}

// SubmitTSV submits a Kallisto TSV already stored at path for conversion
// and loading.
func (s *JobService) SubmitTSV(ctx context.Context, apiKey, path, email string, overwrite bool) (*workflow.Status, error) {
	def, err := s.catalog.Workflow(workflow.TSVUpload)
	if err != nil {
		return nil, err
	}
	inputs := def.Inputs(map[string]any{
		"id":        apiKey,
		"tsv":       path,
		"overwrite": string(model.LoadModeFromOverwrite(overwrite)),
		"email":     email,
	})
	return s.submit(ctx, workflow.TSVUpload, def, inputs)
}

// Progress returns the engine status for jobID.
func (s *JobService) Progress(ctx context.Context, jobID string) (*workflow.Status, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, ErrInvalidJobID
	}

	status, err := s.engine.Status(ctx, jobID)
	if err != nil {
		if errors.Is(err, workflow.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		s.logger.ErrorContext(ctx, "job status failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return nil, ErrEngineUnavailable
	}
	return status, nil
}

func (s *JobService) submit(ctx context.Context, name string, def workflow.Definition, inputs map[string]any) (*workflow.Status, error) {
	status, err := s.engine.Submit(ctx, def, inputs)
	if err != nil {
		s.metrics.IncWorkflowSubmission(name, "failed")
		s.logger.ErrorContext(ctx, "workflow submission failed",
			slog.String("workflow", name),
			slog.String("error", err.Error()),
		)
		return nil, ErrEngineUnavailable
	}

	s.metrics.IncWorkflowSubmission(name, "submitted")
	s.logger.InfoContext(ctx, "workflow submitted",
		slog.String("workflow", name),
		slog.String("job_id", status.ID),
	)
	return status, nil
}
