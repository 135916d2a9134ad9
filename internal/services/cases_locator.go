package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/Lllllllleong/caselawarchive/internal/models"
	"github.com/Lllllllleong/caselawarchive/internal/objectstore"
)

const casesMetadataName = "CasesMetadata.json"

// CaseMetadataLocator finds the case list of a volume. The volume's zip archive takes
// precedence over the loose CasesMetadata.json next to the volume PDF.
type CaseMetadataLocator struct {
	store objectstore.Store
}

func NewCaseMetadataLocator(store objectstore.Store) *CaseMetadataLocator {
	return &CaseMetadataLocator{store: store}
}

// Locate returns the volume's case records in metadata order. Every failure wraps
// ErrMetadataUnavailable.
func (l *CaseMetadataLocator) Locate(ctx context.Context, v models.Volume) ([]models.CaseRecord, error) {
	archiveKey := path.Join(v.ReporterSlug, v.VolumeNumber+".zip")
	archive, err := objectstore.ReadAll(ctx, l.store, archiveKey)
	switch {
	case err == nil:
		return casesFromArchive(archiveKey, archive)
	case !errors.Is(err, objectstore.ErrNotFound):
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrMetadataUnavailable, archiveKey, err)
	}

	looseKey := path.Join(v.ReporterSlug, v.VolumeFolder, casesMetadataName)
	data, err := objectstore.ReadAll(ctx, l.store, looseKey)
	if err != nil {
		return nil, fmt.Errorf("%w: no archive at %s and failed to read %s: %w", ErrMetadataUnavailable, archiveKey, looseKey, err)
	}
	return parseCases(looseKey, data)
}

func casesFromArchive(key string, archive []byte) ([]models.CaseRecord, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open archive %s: %w", ErrMetadataUnavailable, key, err)
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, casesMetadataName) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open %s in %s: %w", ErrMetadataUnavailable, f.Name, key, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read %s in %s: %w", ErrMetadataUnavailable, f.Name, key, err)
		}
		return parseCases(key+"!"+f.Name, data)
	}
	return nil, fmt.Errorf("%w: archive %s has no %s member", ErrMetadataUnavailable, key, casesMetadataName)
}

func parseCases(source string, data []byte) ([]models.CaseRecord, error) {
	var cases []models.CaseRecord
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrMetadataUnavailable, source, err)
	}
	return cases, nil
}
