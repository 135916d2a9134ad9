package services

import (
	"errors"
	"fmt"
)

// ErrMetadataUnavailable marks a volume whose case list could not be located or parsed.
// The volume is skipped, not failed.
var ErrMetadataUnavailable = errors.New("case metadata unavailable")

// DownloadError reports a volume PDF that could not be fetched or staged locally.
type DownloadError struct {
	Key string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %s: %v", e.Key, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// PageRangeError reports a case record whose page range does not fit its volume.
type PageRangeError struct {
	FileName  string
	First     int
	Last      int
	PageCount int
}

func (e *PageRangeError) Error() string {
	return fmt.Sprintf("invalid page range %d-%d for case %s: document has %d pages", e.First, e.Last, e.FileName, e.PageCount)
}

// UploadError reports one case PDF that could not be written to the store.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
