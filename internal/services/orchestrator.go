package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Lllllllleong/caselawarchive/internal/metrics"
	"github.com/Lllllllleong/caselawarchive/internal/models"
	"github.com/Lllllllleong/caselawarchive/internal/objectstore"
)

// OutcomeRecorder persists finished volumes, e.g. to the Firestore ledger.
type OutcomeRecorder interface {
	RecordVolume(ctx context.Context, o models.VolumeOutcome) error
}

// RunOptions tunes one batch run.
type RunOptions struct {
	Concurrency  int  // volume workers; < 1 means runtime.GOMAXPROCS(0)
	SkipExisting bool // skip volumes whose case PDFs are all present already
}

// Orchestrator runs the per-volume pipeline over a bounded worker pool.
type Orchestrator struct {
	resolver     *MetadataResolver
	locator      *CaseMetadataLocator
	materializer *VolumeMaterializer
	splitter     *PDFSplitter
	publisher    *CasePublisher
	recorder     OutcomeRecorder
}

// NewOrchestrator wires the pipeline components around one shared store. recorder may be nil.
func NewOrchestrator(store objectstore.Store, cfg *SplitterConfig, recorder OutcomeRecorder) *Orchestrator {
	return &Orchestrator{
		resolver:     NewMetadataResolver(store, cfg.CatalogKey, cfg.CatalogLevel == CatalogLevelReporter),
		locator:      NewCaseMetadataLocator(store),
		materializer: NewVolumeMaterializer(store, ""),
		splitter:     NewPDFSplitter(),
		publisher:    NewCasePublisher(store, cfg.UploadConcurrency),
		recorder:     recorder,
	}
}

// Plan resolves the volumes a run with this filter would process.
func (o *Orchestrator) Plan(ctx context.Context, filter models.VolumeFilter) ([]models.Volume, error) {
	return o.resolver.Resolve(ctx, filter)
}

// Run resolves the filter and processes every selected volume. Only resolution errors
// are returned; volume failures are reported in the summary.
func (o *Orchestrator) Run(ctx context.Context, filter models.VolumeFilter, opts RunOptions) (*models.RunSummary, error) {
	volumes, err := o.resolver.Resolve(ctx, filter)
	if err != nil {
		return nil, err
	}
	return o.RunVolumes(ctx, volumes, opts), nil
}

// RunVolumes processes volumes on opts.Concurrency workers. Workers hand outcomes to a
// single accumulator over a channel. A cancelled ctx stops dispatch; volumes already
// handed to a worker run to completion and undispatched volumes are left out of the summary.
func (o *Orchestrator) RunVolumes(ctx context.Context, volumes []models.Volume, opts RunOptions) *models.RunSummary {
	summary := &models.RunSummary{}
	if len(volumes) == 0 {
		return summary
	}

	workers := opts.Concurrency
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(volumes) {
		workers = len(volumes)
	}
	slog.Info("Starting volume workers.", "volumes", len(volumes), "workers", workers)

	tasks := make(chan models.Volume)
	results := make(chan models.VolumeOutcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range tasks {
				metrics.WorkerActiveCount.Inc()
				results <- o.processVolume(ctx, v, opts)
				metrics.WorkerActiveCount.Dec()
			}
		}()
	}

	go func() {
		defer close(tasks)
		for _, v := range volumes {
			if ctx.Err() != nil {
				slog.Warn("Context cancelled; no further volumes will be dispatched.", "error", ctx.Err())
				return
			}
			select {
			case tasks <- v:
			case <-ctx.Done():
				slog.Warn("Context cancelled; no further volumes will be dispatched.", "error", ctx.Err())
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for outcome := range results {
		summary.Add(outcome)
		metrics.ObserveVolume(outcome)
		o.record(ctx, outcome)

		attrs := []any{
			"progress", fmt.Sprintf("%d/%d", summary.Total, len(volumes)),
			"reporter", outcome.Volume.ReporterSlug,
			"volume", outcome.Volume.VolumeNumber,
			"status", outcome.Status,
			"published", outcome.Published,
			"duration", outcome.Duration.String(),
		}
		if outcome.Err != nil {
			attrs = append(attrs, "error", outcome.Err)
		}
		slog.Info("Volume finished.", attrs...)
	}
	return summary
}

func (o *Orchestrator) record(ctx context.Context, outcome models.VolumeOutcome) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordVolume(ctx, outcome); err != nil {
		slog.Error("Failed to record volume outcome.", "reporter", outcome.Volume.ReporterSlug, "volume", outcome.Volume.VolumeNumber, "error", err)
	}
}

// processVolume runs locate, download, split and publish for one volume. It never
// panics; a panic inside a step becomes a failed outcome.
func (o *Orchestrator) processVolume(ctx context.Context, v models.Volume, opts RunOptions) (outcome models.VolumeOutcome) {
	start := time.Now()
	logCtx := slog.With("reporter", v.ReporterSlug, "volume", v.VolumeNumber)
	outcome.Volume = v

	defer func() {
		if r := recover(); r != nil {
			logCtx.Error("Recovered from panic while processing volume.", "panic", r)
			outcome.Status = models.StatusFailed
			outcome.Err = fmt.Errorf("panic while processing volume %s: %v", v, r)
		}
		outcome.Duration = time.Since(start)
	}()

	cases, err := o.locator.Locate(ctx, v)
	if err != nil {
		logCtx.Warn("Skipping volume without case metadata.", "error", err)
		outcome.Status = models.StatusSkipped
		outcome.Reason = err.Error()
		return outcome
	}
	outcome.Cases = len(cases)

	if len(cases) == 0 {
		logCtx.Info("Volume has no cases.")
		outcome.Status = models.StatusProcessed
		return outcome
	}

	if opts.SkipExisting {
		done, err := o.publisher.AllPublished(ctx, v, cases)
		if err != nil {
			logCtx.Warn("Failed to list published cases; processing volume anyway.", "error", err)
		} else if done {
			logCtx.Info("Every case PDF already exists. Skipping.")
			outcome.Status = models.StatusSkipped
			outcome.Reason = "already published"
			return outcome
		}
	}

	if RangesOverlap(cases) {
		logCtx.Warn("Case page ranges overlap or are out of order; splitting as given.", "cases", len(cases))
	}

	lv, err := o.materializer.Materialize(ctx, v)
	if err != nil {
		return failed(logCtx, outcome, "Failed to download volume PDF.", err)
	}
	defer lv.Release()
	outcome.SourceSHA256 = lv.SHA256
	logCtx.Info("Downloaded volume PDF.", "bytes", lv.Size, "sha256", lv.SHA256, "cases", len(cases))

	artifacts, splitErr := o.split(lv, cases)
	if artifacts == nil && splitErr != nil {
		return failed(logCtx, outcome, "Failed to split volume PDF.", splitErr)
	}
	if splitErr != nil {
		logCtx.Error("Some cases could not be split.", "error", splitErr)
	}

	published, publishErr := o.publisher.Publish(ctx, v, artifacts)
	outcome.Published = published

	if err := errors.Join(splitErr, publishErr); err != nil {
		return failed(logCtx, outcome, "Volume finished with failed cases.", err)
	}
	outcome.Status = models.StatusProcessed
	return outcome
}

func (o *Orchestrator) split(lv *LocalVolume, cases []models.CaseRecord) ([]models.CasePdfArtifact, error) {
	f, err := lv.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open staged PDF: %w", err)
	}
	defer f.Close()
	return o.splitter.Split(f, cases)
}

func failed(logCtx *slog.Logger, outcome models.VolumeOutcome, message string, err error) models.VolumeOutcome {
	logCtx.Error(message, "published", outcome.Published, "error", err)
	outcome.Status = models.StatusFailed
	outcome.Err = fmt.Errorf("%s: %w", outcome.Volume, err)
	return outcome
}
