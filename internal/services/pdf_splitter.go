package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Lllllllleong/caselawarchive/internal/gcp"
	"github.com/Lllllllleong/caselawarchive/internal/metrics"
	"github.com/Lllllllleong/caselawarchive/internal/models"
	"github.com/Lllllllleong/caselawarchive/internal/objectstore"
)

const (
	StatusSuccess             = "success"
	StatusCompletedWithErrors = "completed_with_failures"
	StatusDryRun              = "dry_run"

	metricsJob = "split-pdfs"
)

// WorkflowNotifier hands a finished run to downstream processing.
type WorkflowNotifier interface {
	Handoff(ctx context.Context, payload models.WorkflowHandoff) error
}

// PDFSplitterFunction is the entry point shared by the CLI and the Cloud Function.
type PDFSplitterFunction struct {
	store        objectstore.Store
	orchestrator *Orchestrator
	notifier     WorkflowNotifier
	closers      []io.Closer
	config       SplitterConfig
}

// NewPDFSplitterFunction loads configuration from the environment and connects the
// storage backend and the optional Firestore ledger and workflow trigger.
func NewPDFSplitterFunction(ctx context.Context) (*PDFSplitterFunction, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := openStore(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", config.StorageBackend, err)
	}
	f := &PDFSplitterFunction{store: store, config: *config}

	var recorder OutcomeRecorder
	if config.ProjectID != "" {
		firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		ledger := gcp.NewVolumeLedger(firestoreClient, config.CollectionName)
		f.closers = append(f.closers, ledger)
		recorder = ledger
	}
	if config.WorkflowID != "" {
		trigger, err := gcp.NewWorkflowTrigger(ctx, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create workflow trigger: %w", err)
		}
		f.closers = append(f.closers, trigger)
		f.notifier = trigger
	}
	f.orchestrator = NewOrchestrator(store, config, recorder)

	slog.Info("PDF Splitter logic initialized.",
		"backend", config.StorageBackend,
		"bucket", config.Bucket,
		"concurrency", config.Concurrency,
		"uploadConcurrency", config.UploadConcurrency,
		"ledger", recorder != nil,
		"workflowId", config.WorkflowID,
	)
	return f, nil
}

// Process runs one split batch. Only batch-fatal errors (bad request, missing or
// unreadable catalog) are returned; per-volume failures are in the summary.
func (f *PDFSplitterFunction) Process(ctx context.Context, req *models.SplitRequest) (*models.SplitResponse, error) {
	if req.Reporter != "" && req.PublicationYear != nil {
		return nil, fmt.Errorf("reporter and publication year filters are mutually exclusive")
	}
	filter := models.VolumeFilter{ReporterSlug: req.Reporter, PublicationYear: req.PublicationYear}
	logCtx := slog.With("filter", filter.String())

	if req.DryRun {
		volumes, err := f.orchestrator.Plan(ctx, filter)
		if err != nil {
			logCtx.Error("Failed to resolve volumes", "error", err)
			return nil, fmt.Errorf("failed to resolve volumes: %w", err)
		}
		resp := &models.SplitResponse{Status: StatusDryRun, Summary: models.RunSummary{Total: len(volumes)}}
		for _, v := range volumes {
			resp.Volumes = append(resp.Volumes, v.String())
		}
		logCtx.Info("Dry run complete.", "volumes", len(volumes))
		return resp, nil
	}

	concurrency := req.Concurrency
	if concurrency < 1 {
		concurrency = f.config.Concurrency
	}
	logCtx.Info("Starting split run.", "concurrency", concurrency, "skipExisting", req.SkipExisting)

	summary, err := f.orchestrator.Run(ctx, filter, RunOptions{Concurrency: concurrency, SkipExisting: req.SkipExisting})
	if err != nil {
		logCtx.Error("Failed to resolve volumes", "error", err)
		return nil, fmt.Errorf("failed to resolve volumes: %w", err)
	}

	f.handoff(ctx, logCtx, req, summary)
	f.pushMetrics(ctx, logCtx)

	status := StatusSuccess
	if summary.Failed > 0 {
		status = StatusCompletedWithErrors
	}
	logCtx.Info("Split run complete.",
		"total", summary.Total,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"casesPublished", summary.CasesPublished,
	)
	return &models.SplitResponse{Status: status, Summary: *summary}, nil
}

func (f *PDFSplitterFunction) handoff(ctx context.Context, logCtx *slog.Logger, req *models.SplitRequest, summary *models.RunSummary) {
	if f.notifier == nil {
		return
	}
	payload := models.WorkflowHandoff{
		Reporter:        req.Reporter,
		PublicationYear: req.PublicationYear,
		Processed:       summary.Processed,
		Skipped:         summary.Skipped,
		Failed:          summary.Failed,
		CasesPublished:  summary.CasesPublished,
	}
	if err := f.notifier.Handoff(ctx, payload); err != nil {
		logCtx.Error("Failed to hand off to workflow.", "error", err)
	}
}

func (f *PDFSplitterFunction) pushMetrics(ctx context.Context, logCtx *slog.Logger) {
	if f.config.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(ctx, f.config.PushgatewayURL, metricsJob); err != nil {
		logCtx.Warn("Failed to push metrics.", "error", err)
	}
}

// Close releases the store and every optional client.
func (f *PDFSplitterFunction) Close() error {
	var errs []error
	for _, c := range f.closers {
		errs = append(errs, c.Close())
	}
	if f.store != nil {
		errs = append(errs, f.store.Close())
	}
	return errors.Join(errs...)
}
