package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/Lllllllleong/caselawarchive/internal/models"
	"github.com/Lllllllleong/caselawarchive/internal/objectstore"
	"github.com/Lllllllleong/caselawarchive/internal/testutil"
)

var errInjected = errors.New("injected failure")

// faultyStore wraps a MemoryStore and fails or panics on selected keys.
type faultyStore struct {
	*objectstore.MemoryStore

	mu       sync.Mutex
	failGet  map[string]error
	failPut  func(key string) bool
	panicGet string
	putTried []string
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: objectstore.NewMemoryStore(), failGet: map[string]error{}}
}

func (s *faultyStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.panicGet != "" && key == s.panicGet {
		panic("boom: " + key)
	}
	if err, ok := s.failGet[key]; ok {
		return nil, err
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *faultyStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	s.mu.Lock()
	s.putTried = append(s.putTried, key)
	s.mu.Unlock()
	if s.failPut != nil && s.failPut(key) {
		return errInjected
	}
	return s.MemoryStore.Put(ctx, key, r, contentType)
}

func (s *faultyStore) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.putTried)
}

func failKeysContaining(substr string) func(string) bool {
	return func(key string) bool { return strings.Contains(key, substr) }
}

// mockRecorder records outcomes through testify's mock.
type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordVolume(ctx context.Context, o models.VolumeOutcome) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Handoff(ctx context.Context, payload models.WorkflowHandoff) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func intPtr(n int) *int { return &n }

func volume(slug, number string) models.Volume {
	return models.Volume{ReporterSlug: slug, VolumeNumber: number, VolumeFolder: number}
}

// seedVolume stores a pages-long volume PDF and its loose CasesMetadata.json.
func seedVolume(t *testing.T, store interface{ Set(string, []byte) }, v models.Volume, pages int, cases []models.CaseRecord) {
	t.Helper()
	store.Set(PDFKey(v), testutil.MultiPagePDF(pages))
	store.Set(v.ReporterSlug+"/"+v.VolumeFolder+"/CasesMetadata.json", testutil.CasesJSON(t, cases))
}

func testConfig() *SplitterConfig {
	return &SplitterConfig{
		CatalogKey:        DefaultCatalogKey,
		CatalogLevel:      CatalogLevelRoot,
		Concurrency:       2,
		UploadConcurrency: 3,
	}
}
