package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/caselawarchive/internal/models"
)

func TestObserveVolume(t *testing.T) {
	vol := models.Volume{ReporterSlug: "metrics-test", VolumeNumber: "1", VolumeFolder: "1"}

	ObserveVolume(models.VolumeOutcome{Volume: vol, Status: models.StatusProcessed, Cases: 3, Published: 3, Duration: time.Second})
	ObserveVolume(models.VolumeOutcome{Volume: vol, Status: models.StatusFailed, Cases: 4, Published: 1, Duration: time.Second})
	ObserveVolume(models.VolumeOutcome{Volume: vol, Status: models.StatusSkipped, Reason: "metadata unavailable"})

	assert.Equal(t, 1.0, testutil.ToFloat64(VolumesFinished.WithLabelValues("metrics-test", "PROCESSED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(VolumesFinished.WithLabelValues("metrics-test", "FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(VolumesFinished.WithLabelValues("metrics-test", "SKIPPED")))
	assert.Equal(t, 4.0, testutil.ToFloat64(CasesPublished.WithLabelValues("metrics-test")))
	assert.Equal(t, 3.0, testutil.ToFloat64(CaseFailures.WithLabelValues("metrics-test")))
}

func TestPush(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Contains(t, r.URL.Path, "/metrics/job/split-pdfs")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, Push(context.Background(), srv.URL, "split-pdfs"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Push(context.Background(), srv.URL, "split-pdfs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to push metrics")
}
