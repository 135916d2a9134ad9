package models

import "time"

// VolumeRun is the ledger record for one volume's most recent split attempt in Firestore.
// It tracks the outcome and the counts the batch summary is built from.
type VolumeRun struct {
	ReporterSlug string    `firestore:"reporterSlug,omitempty"`
	VolumeNumber string    `firestore:"volumeNumber,omitempty"`
	VolumeFolder string    `firestore:"volumeFolder,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	CaseCount    int       `firestore:"caseCount"`
	Published    int       `firestore:"published"`
	SourceHash   string    `firestore:"sourceHash,omitempty"` // sha256 of the volume PDF
	DurationMs   int64     `firestore:"durationMs"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty"`
}

// NewVolumeRun flattens an outcome into its ledger form.
func NewVolumeRun(o VolumeOutcome, now time.Time) VolumeRun {
	run := VolumeRun{
		ReporterSlug: o.Volume.ReporterSlug,
		VolumeNumber: o.Volume.VolumeNumber,
		VolumeFolder: o.Volume.VolumeFolder,
		Status:       string(o.Status),
		CaseCount:    o.Cases,
		Published:    o.Published,
		SourceHash:   o.SourceSHA256,
		DurationMs:   o.Duration.Milliseconds(),
		UpdatedAt:    now,
	}
	switch {
	case o.Err != nil:
		run.ErrorDetails = o.Err.Error()
	case o.Reason != "":
		run.ErrorDetails = o.Reason
	}
	return run
}
