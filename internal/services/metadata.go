package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/Lllllllleong/caselawarchive/internal/models"
	"github.com/Lllllllleong/caselawarchive/internal/objectstore"
)

// DefaultCatalogKey is the root-level volume catalog.
const DefaultCatalogKey = "VolumesMetadata.json"

// MetadataResolver turns a filter into the list of volumes to process.
type MetadataResolver struct {
	store         objectstore.Store
	catalogKey    string
	reporterLevel bool
}

// NewMetadataResolver returns a resolver reading catalogKey. With reporterLevel set, a
// reporter filter reads {reporter}/{base of catalogKey} instead of the root catalog.
func NewMetadataResolver(store objectstore.Store, catalogKey string, reporterLevel bool) *MetadataResolver {
	if catalogKey == "" {
		catalogKey = DefaultCatalogKey
	}
	return &MetadataResolver{store: store, catalogKey: catalogKey, reporterLevel: reporterLevel}
}

// Resolve reads the catalog and applies the filter, keeping catalog order. A missing
// catalog returns an error wrapping objectstore.ErrNotFound.
func (r *MetadataResolver) Resolve(ctx context.Context, filter models.VolumeFilter) ([]models.Volume, error) {
	key := r.catalogFor(filter)
	data, err := objectstore.ReadAll(ctx, r.store, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read volume catalog %s: %w", key, err)
	}

	var catalog []models.Volume
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse volume catalog %s: %w", key, err)
	}

	volumes := make([]models.Volume, 0, len(catalog))
	for _, v := range catalog {
		if matches(v, filter) {
			volumes = append(volumes, v)
		}
	}
	slog.Info("Resolved volumes.", "catalog", key, "filter", filter.String(), "catalogSize", len(catalog), "selected", len(volumes))
	return volumes, nil
}

func (r *MetadataResolver) catalogFor(filter models.VolumeFilter) string {
	if r.reporterLevel && filter.ReporterSlug != "" {
		return path.Join(filter.ReporterSlug, path.Base(r.catalogKey))
	}
	return r.catalogKey
}

func matches(v models.Volume, filter models.VolumeFilter) bool {
	if filter.ReporterSlug != "" && v.ReporterSlug != filter.ReporterSlug {
		return false
	}
	if filter.PublicationYear != nil {
		if v.PublicationYear == nil || *v.PublicationYear != *filter.PublicationYear {
			return false
		}
	}
	return true
}
