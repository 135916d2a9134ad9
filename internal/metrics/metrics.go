// Package metrics holds the batch counters of a split run. A run is a short-lived
// job, so the registry is pushed to a Pushgateway when the run ends instead of
// being scraped.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/Lllllllleong/caselawarchive/internal/models"
)

// Registry collects every split metric. It is kept apart from the default registry so
// a push carries only batch metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	VolumesFinished = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caselaw_split_volumes_total",
			Help: "The total number of volumes finished, by outcome",
		},
		[]string{"reporter", "status"},
	)

	CasesPublished = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caselaw_split_cases_published_total",
			Help: "The total number of case PDFs uploaded",
		},
		[]string{"reporter"},
	)

	CaseFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caselaw_split_case_failures_total",
			Help: "Case PDFs located but not published",
		},
		[]string{"reporter"},
	)

	VolumeDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caselaw_split_volume_duration_seconds",
			Help:    "Duration of one volume's locate, download, split and publish steps",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"status"},
	)

	WorkerActiveCount = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "caselaw_split_worker_active_count",
			Help: "Number of workers currently processing a volume",
		},
	)
)

// ObserveVolume records one finished volume.
func ObserveVolume(o models.VolumeOutcome) {
	reporter := o.Volume.ReporterSlug
	status := string(o.Status)

	VolumesFinished.WithLabelValues(reporter, status).Inc()
	VolumeDuration.WithLabelValues(status).Observe(o.Duration.Seconds())
	if o.Published > 0 {
		CasesPublished.WithLabelValues(reporter).Add(float64(o.Published))
	}
	if o.Status == models.StatusFailed && o.Cases > o.Published {
		CaseFailures.WithLabelValues(reporter).Add(float64(o.Cases - o.Published))
	}
}

// Push sends the registry to the Pushgateway at url under the given job name.
func Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
