package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/caselawarchive/internal/models"
	"github.com/Lllllllleong/caselawarchive/internal/objectstore"
)

const pdfContentType = "application/pdf"

// CasePublisher uploads case PDFs next to their volume.
type CasePublisher struct {
	store       objectstore.Store
	concurrency int
}

func NewCasePublisher(store objectstore.Store, concurrency int) *CasePublisher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &CasePublisher{store: store, concurrency: concurrency}
}

// CaseKey is the storage key of a published case PDF.
func CaseKey(v models.Volume, fileName string) string {
	return path.Join(v.ReporterSlug, v.VolumeFolder, "case-pdfs", fileName+".pdf")
}

// Publish uploads every artifact and returns how many succeeded. A failed upload does
// not cancel its siblings; all failures are joined into the returned error as
// *UploadError values. Each artifact is released once its upload has been attempted.
func (p *CasePublisher) Publish(ctx context.Context, v models.Volume, artifacts []models.CasePdfArtifact) (int, error) {
	var (
		eg        errgroup.Group
		published atomic.Int64
		mu        sync.Mutex
		errs      []error
	)
	eg.SetLimit(p.concurrency)

	for i := range artifacts {
		artifact := &artifacts[i]
		eg.Go(func() error {
			defer artifact.Release()
			key := CaseKey(v, artifact.FileName)
			if err := p.store.Put(ctx, key, bytes.NewReader(artifact.Data), pdfContentType); err != nil {
				slog.Error("Failed to upload case PDF.", "reporter", v.ReporterSlug, "volume", v.VolumeNumber, "key", key, "error", err)
				mu.Lock()
				errs = append(errs, &UploadError{Key: key, Err: err})
				mu.Unlock()
				return nil
			}
			published.Add(1)
			return nil
		})
	}
	_ = eg.Wait()
	return int(published.Load()), errors.Join(errs...)
}

// AllPublished reports whether every case of the volume already has its PDF in the store.
func (p *CasePublisher) AllPublished(ctx context.Context, v models.Volume, cases []models.CaseRecord) (bool, error) {
	keys, err := p.store.List(ctx, path.Join(v.ReporterSlug, v.VolumeFolder, "case-pdfs")+"/")
	if err != nil {
		return false, err
	}
	existing := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		existing[k] = struct{}{}
	}
	for _, c := range cases {
		if _, ok := existing[CaseKey(v, c.FileName)]; !ok {
			return false, nil
		}
	}
	return true, nil
}
