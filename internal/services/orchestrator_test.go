package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/caselawarchive/internal/models"
	"github.com/Lllllllleong/caselawarchive/internal/objectstore"
)

func seedCatalog(t *testing.T, store *faultyStore, vols ...models.Volume) {
	t.Helper()
	data, err := json.Marshal(vols)
	require.NoError(t, err)
	store.Set(DefaultCatalogKey, data)
}

func outcomesByVolume(s *models.RunSummary) map[string]models.VolumeOutcome {
	out := make(map[string]models.VolumeOutcome, len(s.Outcomes))
	for _, o := range s.Outcomes {
		out[o.Volume.VolumeNumber] = o
	}
	return out
}

func newTestOrchestrator(t *testing.T, store *faultyStore, recorder OutcomeRecorder) (*Orchestrator, string) {
	t.Helper()
	o := NewOrchestrator(store, testConfig(), recorder)
	tempRoot := t.TempDir()
	o.materializer = NewVolumeMaterializer(store, tempRoot)
	return o, tempRoot
}

func assertNoTempDirs(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunPartialFailureIsolation(t *testing.T) {
	store := newFaultyStore()
	ok := volume("a2d", "1")
	noPDF := volume("a2d", "2")
	noMetadata := volume("a2d", "3")
	badUpload := volume("a2d", "4")
	badRange := volume("a2d", "5")
	seedCatalog(t, store, ok, noPDF, noMetadata, badUpload, badRange)

	seedVolume(t, store, ok, 4, []models.CaseRecord{
		{FileName: "0001-01", FirstPageOrder: 1, LastPageOrder: 2},
		{FileName: "0003-01", FirstPageOrder: 3, LastPageOrder: 4},
	})
	store.Set("a2d/2/CasesMetadata.json", []byte(`[{"file_name": "x", "first_page_order": 1, "last_page_order": 1}]`))
	seedVolume(t, store, badUpload, 3, []models.CaseRecord{
		{FileName: "good", FirstPageOrder: 1, LastPageOrder: 1},
		{FileName: "bad", FirstPageOrder: 2, LastPageOrder: 3},
	})
	seedVolume(t, store, badRange, 2, []models.CaseRecord{
		{FileName: "fits", FirstPageOrder: 1, LastPageOrder: 2},
		{FileName: "overflows", FirstPageOrder: 2, LastPageOrder: 9},
	})
	store.failPut = failKeysContaining("case-pdfs/bad.pdf")

	o, tempRoot := newTestOrchestrator(t, store, nil)
	summary, err := o.Run(context.Background(), models.VolumeFilter{ReporterSlug: "a2d"}, RunOptions{Concurrency: 3})
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 3, summary.Failed)
	assert.Equal(t, 4, summary.CasesPublished)

	got := outcomesByVolume(summary)
	assert.Equal(t, models.StatusProcessed, got["1"].Status)
	assert.Equal(t, 2, got["1"].Published)
	assert.NotEmpty(t, got["1"].SourceSHA256)

	assert.Equal(t, models.StatusFailed, got["2"].Status)
	var dlErr *DownloadError
	assert.True(t, errors.As(got["2"].Err, &dlErr))

	assert.Equal(t, models.StatusSkipped, got["3"].Status)
	assert.NotEmpty(t, got["3"].Reason)

	assert.Equal(t, models.StatusFailed, got["4"].Status)
	assert.True(t, got["4"].Partial())
	var upErr *UploadError
	assert.True(t, errors.As(got["4"].Err, &upErr))

	assert.Equal(t, models.StatusFailed, got["5"].Status)
	assert.Equal(t, 1, got["5"].Published)
	var rangeErr *PageRangeError
	assert.True(t, errors.As(got["5"].Err, &rangeErr))

	_, published := store.Object("a2d/1/case-pdfs/0003-01.pdf")
	assert.True(t, published)
	_, published = store.Object("a2d/5/case-pdfs/fits.pdf")
	assert.True(t, published)
	assertNoTempDirs(t, tempRoot)
}

func TestRunEmptyMetadataIsProcessed(t *testing.T) {
	store := newFaultyStore()
	v := volume("us", "1")
	seedCatalog(t, store, v)
	store.Set("us/1/CasesMetadata.json", []byte(`[]`))
	puts := store.Puts()

	o, _ := newTestOrchestrator(t, store, nil)
	summary, err := o.Run(context.Background(), models.VolumeFilter{}, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.CasesPublished)
	assert.Equal(t, puts, store.Puts())
}

func TestRunSkipExisting(t *testing.T) {
	store := newFaultyStore()
	v := volume("us", "1")
	seedCatalog(t, store, v)
	seedVolume(t, store, v, 2, []models.CaseRecord{{FileName: "a", FirstPageOrder: 1, LastPageOrder: 2}})

	o, _ := newTestOrchestrator(t, store, nil)
	summary, err := o.Run(context.Background(), models.VolumeFilter{}, RunOptions{SkipExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	attempts := store.attempts()

	summary, err = o.Run(context.Background(), models.VolumeFilter{}, RunOptions{SkipExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, "already published", summary.Outcomes[0].Reason)
	assert.Equal(t, attempts, store.attempts())

	// Without the flag the volume is republished over the existing objects.
	summary, err = o.Run(context.Background(), models.VolumeFilter{}, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, attempts+1, store.attempts())
}

func TestRunRecoversFromPanic(t *testing.T) {
	store := newFaultyStore()
	boom := volume("us", "1")
	fine := volume("us", "2")
	seedCatalog(t, store, boom, fine)
	seedVolume(t, store, boom, 1, []models.CaseRecord{{FileName: "a", FirstPageOrder: 1, LastPageOrder: 1}})
	seedVolume(t, store, fine, 1, []models.CaseRecord{{FileName: "b", FirstPageOrder: 1, LastPageOrder: 1}})
	store.panicGet = PDFKey(boom)

	o, tempRoot := newTestOrchestrator(t, store, nil)
	summary, err := o.Run(context.Background(), models.VolumeFilter{}, RunOptions{Concurrency: 1})
	require.NoError(t, err)

	got := outcomesByVolume(summary)
	assert.Equal(t, models.StatusFailed, got["1"].Status)
	assert.Contains(t, got["1"].Err.Error(), "panic")
	assert.Equal(t, models.StatusProcessed, got["2"].Status)
	assertNoTempDirs(t, tempRoot)
}

func TestRunRecordsEveryOutcome(t *testing.T) {
	store := newFaultyStore()
	a := volume("us", "1")
	b := volume("us", "2")
	seedCatalog(t, store, a, b)
	seedVolume(t, store, a, 1, []models.CaseRecord{{FileName: "a", FirstPageOrder: 1, LastPageOrder: 1}})

	recorder := &mockRecorder{}
	recorder.On("RecordVolume", mock.Anything, mock.MatchedBy(func(o models.VolumeOutcome) bool {
		return o.Volume.VolumeNumber == "1" && o.Status == models.StatusProcessed
	})).Return(nil).Once()
	recorder.On("RecordVolume", mock.Anything, mock.MatchedBy(func(o models.VolumeOutcome) bool {
		return o.Volume.VolumeNumber == "2" && o.Status == models.StatusSkipped
	})).Return(errors.New("firestore unavailable")).Once()

	o, _ := newTestOrchestrator(t, store, recorder)
	summary, err := o.Run(context.Background(), models.VolumeFilter{}, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	recorder.AssertExpectations(t)
}

func TestRunStopsDispatchOnCancel(t *testing.T) {
	store := newFaultyStore()
	v := volume("us", "1")
	seedCatalog(t, store, v)
	seedVolume(t, store, v, 1, []models.CaseRecord{{FileName: "a", FirstPageOrder: 1, LastPageOrder: 1}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, _ := newTestOrchestrator(t, store, nil)
	summary := o.RunVolumes(ctx, []models.Volume{v, v, v}, RunOptions{Concurrency: 2})
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, store.attempts())
}

func TestRunMissingCatalogIsFatal(t *testing.T) {
	o, _ := newTestOrchestrator(t, newFaultyStore(), nil)
	summary, err := o.Run(context.Background(), models.VolumeFilter{}, RunOptions{})
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
}
