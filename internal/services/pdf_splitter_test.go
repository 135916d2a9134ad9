package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/caselawarchive/internal/models"
	"github.com/Lllllllleong/caselawarchive/internal/objectstore"
)

func newTestFunction(t *testing.T, store *faultyStore, notifier WorkflowNotifier) *PDFSplitterFunction {
	t.Helper()
	o, _ := newTestOrchestrator(t, store, nil)
	return &PDFSplitterFunction{
		store:        store,
		orchestrator: o,
		notifier:     notifier,
		config:       *testConfig(),
	}
}

func TestProcessRejectsBothFilters(t *testing.T) {
	f := newTestFunction(t, newFaultyStore(), nil)
	_, err := f.Process(context.Background(), &models.SplitRequest{Reporter: "us", PublicationYear: intPtr(1900)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestProcessDryRun(t *testing.T) {
	store := newFaultyStore()
	seedCatalog(t, store, volume("us", "1"), volume("us", "2"), volume("a2d", "1"))
	f := newTestFunction(t, store, nil)

	resp, err := f.Process(context.Background(), &models.SplitRequest{Reporter: "us", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, StatusDryRun, resp.Status)
	assert.Equal(t, 2, resp.Summary.Total)
	assert.Equal(t, []string{"us/1", "us/2"}, resp.Volumes)
	assert.Equal(t, 0, store.attempts())
}

func TestProcessHandsOffSummary(t *testing.T) {
	store := newFaultyStore()
	ok := volume("us", "1")
	broken := volume("us", "2")
	seedCatalog(t, store, ok, broken)
	seedVolume(t, store, ok, 2, []models.CaseRecord{{FileName: "a", FirstPageOrder: 1, LastPageOrder: 2}})
	store.Set("us/2/CasesMetadata.json", []byte(`[{"file_name": "b", "first_page_order": 1, "last_page_order": 1}]`))

	notifier := &mockNotifier{}
	notifier.On("Handoff", mock.Anything, models.WorkflowHandoff{
		Reporter:       "us",
		Processed:      1,
		Failed:         1,
		CasesPublished: 1,
	}).Return(nil).Once()

	f := newTestFunction(t, store, notifier)
	resp, err := f.Process(context.Background(), &models.SplitRequest{Reporter: "us", Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, StatusCompletedWithErrors, resp.Status)
	assert.Equal(t, 2, resp.Summary.Total)
	notifier.AssertExpectations(t)
}

func TestProcessMissingCatalog(t *testing.T) {
	notifier := &mockNotifier{}
	f := newTestFunction(t, newFaultyStore(), notifier)

	_, err := f.Process(context.Background(), &models.SplitRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
	notifier.AssertNotCalled(t, "Handoff", mock.Anything, mock.Anything)
}
