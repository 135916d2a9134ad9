package models

// These structs define the JSON payloads exchanged with the split-pdfs Cloud Function
// and the workflow it hands off to.

// SplitRequest is the input for the split-pdfs function. Reporter and PublicationYear
// are mutually exclusive.
type SplitRequest struct {
	Reporter        string `json:"reporter,omitempty"`
	PublicationYear *int   `json:"publicationYear,omitempty"`
	Concurrency     int    `json:"concurrency,omitempty"`
	DryRun          bool   `json:"dryRun,omitempty"`
	SkipExisting    bool   `json:"skipExisting,omitempty"`
}

// SplitResponse is the output of the split-pdfs function.
type SplitResponse struct {
	Status  string     `json:"status"`
	Summary RunSummary `json:"summary"`
	Volumes []string   `json:"volumes,omitempty"` // dry runs only
}

// WorkflowHandoff is the argument passed to the downstream workflow once a run completes.
type WorkflowHandoff struct {
	Reporter        string `json:"reporter,omitempty"`
	PublicationYear *int   `json:"publicationYear,omitempty"`
	Processed       int    `json:"processed"`
	Skipped         int    `json:"skipped"`
	Failed          int    `json:"failed"`
	CasesPublished  int    `json:"casesPublished"`
}
