package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"path"
	"strconv"
	"strings"
)

// Volume is one published unit of the archive as listed in VolumesMetadata.json.
type Volume struct {
	ReporterSlug    string `json:"reporter_slug"`
	VolumeNumber    string `json:"volume_number"`
	VolumeFolder    string `json:"volume_folder"`
	PublicationYear *int   `json:"publication_year,omitempty"`
}

// Key is the storage location of the volume, reporter_slug/volume_folder.
func (v Volume) Key() string {
	return path.Join(v.ReporterSlug, v.VolumeFolder)
}

func (v Volume) String() string {
	return fmt.Sprintf("%s/%s", v.ReporterSlug, v.VolumeNumber)
}

// UnmarshalJSON accepts publication_year as a number, a numeric string or null, and
// volume numbers written as bare numbers. An unparseable year is treated as missing.
func (v *Volume) UnmarshalJSON(data []byte) error {
	var raw struct {
		ReporterSlug    string          `json:"reporter_slug"`
		VolumeNumber    json.RawMessage `json:"volume_number"`
		VolumeFolder    json.RawMessage `json:"volume_folder"`
		PublicationYear json.RawMessage `json:"publication_year"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	number, err := stringOrNumber(raw.VolumeNumber)
	if err != nil {
		return fmt.Errorf("volume_number: %w", err)
	}
	folder, err := stringOrNumber(raw.VolumeFolder)
	if err != nil {
		return fmt.Errorf("volume_folder: %w", err)
	}
	year := optionalYear(raw.ReporterSlug, raw.PublicationYear)
	*v = Volume{
		ReporterSlug:    raw.ReporterSlug,
		VolumeNumber:    number,
		VolumeFolder:    folder,
		PublicationYear: year,
	}
	return nil
}

func stringOrNumber(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// optionalYear decodes publication_year. Values that are not whole numbers decode as nil,
// so the volume never matches a year filter.
func optionalYear(reporter string, raw json.RawMessage) *int {
	s, err := stringOrNumber(raw)
	if err == nil && s == "" {
		return nil
	}
	if err == nil {
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			return &n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
			n := int(f)
			return &n
		}
	}
	slog.Debug("Ignoring unparseable publication_year.", "reporter", reporter, "value", string(raw))
	return nil
}

// CaseRecord locates one case inside its volume PDF. Page orders are 1-based and inclusive.
type CaseRecord struct {
	FileName       string `json:"file_name"`
	FirstPageOrder int    `json:"first_page_order"`
	LastPageOrder  int    `json:"last_page_order"`
}

// PageCount is the number of pages the record spans.
func (c CaseRecord) PageCount() int {
	return c.LastPageOrder - c.FirstPageOrder + 1
}

// CasePdfArtifact is a split-out case PDF waiting to be published.
type CasePdfArtifact struct {
	FileName string
	Data     []byte
}

// Release drops the artifact's content once its upload has been attempted.
func (a *CasePdfArtifact) Release() {
	a.Data = nil
}

// VolumeFilter narrows the catalog. Zero values mean no filtering.
type VolumeFilter struct {
	ReporterSlug    string
	PublicationYear *int
}

func (f VolumeFilter) String() string {
	year := "any"
	if f.PublicationYear != nil {
		year = strconv.Itoa(*f.PublicationYear)
	}
	reporter := f.ReporterSlug
	if reporter == "" {
		reporter = "any"
	}
	return fmt.Sprintf("reporter=%s year=%s", reporter, year)
}
