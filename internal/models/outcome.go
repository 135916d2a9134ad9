package models

import "time"

// VolumeStatus is the terminal state of one volume's processing unit.
type VolumeStatus string

const (
	StatusProcessed VolumeStatus = "PROCESSED"
	StatusSkipped   VolumeStatus = "SKIPPED"
	StatusFailed    VolumeStatus = "FAILED"
)

// VolumeOutcome is what a processing unit reports back to the orchestrator.
type VolumeOutcome struct {
	Volume       Volume
	Status       VolumeStatus
	Cases        int    // case records located for the volume
	Published    int    // case PDFs uploaded successfully
	Reason       string // why the volume was skipped
	Err          error
	SourceSHA256 string
	Duration     time.Duration
}

// Partial reports a failed volume that still published some of its cases.
func (o VolumeOutcome) Partial() bool {
	return o.Status == StatusFailed && o.Published > 0
}

// RunSummary aggregates every outcome of a batch run.
type RunSummary struct {
	Total          int             `json:"total"`
	Processed      int             `json:"processed"`
	Skipped        int             `json:"skipped"`
	Failed         int             `json:"failed"`
	CasesPublished int             `json:"casesPublished"`
	Outcomes       []VolumeOutcome `json:"-"`
}

// Add folds one outcome into the summary.
func (s *RunSummary) Add(o VolumeOutcome) {
	s.Total++
	s.Outcomes = append(s.Outcomes, o)
	s.CasesPublished += o.Published
	switch o.Status {
	case StatusProcessed:
		s.Processed++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}
