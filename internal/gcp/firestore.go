package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/caselawarchive/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// VolumeLedger records the latest split outcome of every volume, one document per
// reporter/volume_folder pair.
type VolumeLedger struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

// NewVolumeLedger returns a ledger writing to the named collection.
func NewVolumeLedger(client *firestore.Client, collection string) *VolumeLedger {
	return &VolumeLedger{client: client, collection: collection, now: time.Now}
}

// RecordVolume overwrites the volume's ledger document with the outcome.
func (l *VolumeLedger) RecordVolume(ctx context.Context, o models.VolumeOutcome) error {
	docRef := l.client.Collection(l.collection).Doc(LedgerDocID(o.Volume))
	if _, err := docRef.Set(ctx, models.NewVolumeRun(o, l.now().UTC())); err != nil {
		return fmt.Errorf("failed to record outcome for %s: %w", o.Volume, err)
	}
	return nil
}

// Close releases the Firestore client.
func (l *VolumeLedger) Close() error {
	return l.client.Close()
}

// LedgerDocID maps a volume to its document ID. Firestore IDs cannot contain '/'.
func LedgerDocID(v models.Volume) string {
	return strings.ReplaceAll(v.ReporterSlug, "/", "_") + "__" + strings.ReplaceAll(v.VolumeFolder, "/", "_")
}
