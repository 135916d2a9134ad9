package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"

	"github.com/Lllllllleong/caselawarchive/internal/gcp"
	"github.com/Lllllllleong/caselawarchive/internal/objectstore"
	"github.com/Lllllllleong/caselawarchive/internal/r2"
)

const (
	BackendR2  = "r2"
	BackendGCS = "gcs"

	CatalogLevelRoot     = "root"
	CatalogLevelReporter = "reporter"
)

// SplitterConfig holds all configuration for the split job.
type SplitterConfig struct {
	StorageBackend     string
	Bucket             string
	Endpoint           string
	Region             string
	AccessKeyID        string
	SecretAccessKey    string
	ForcePathStyle     bool
	GCSCredentialsFile string

	CatalogKey        string
	CatalogLevel      string
	Concurrency       int
	UploadConcurrency int

	// Optional integrations. Each is disabled while its variable is empty.
	ProjectID        string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
	PushgatewayURL   string
}

// loadConfig loads and validates all necessary environment variables for the job.
func loadConfig() (*SplitterConfig, error) {
	bucket := gcp.GetEnv("R2_STATIC_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("R2_STATIC_BUCKET environment variable must be set")
	}

	backend := strings.ToLower(gcp.GetEnv("STORAGE_BACKEND", BackendR2))
	if backend != BackendR2 && backend != BackendGCS {
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q: want %q or %q", backend, BackendR2, BackendGCS)
	}

	catalogLevel := strings.ToLower(gcp.GetEnv("CATALOG_LEVEL", CatalogLevelRoot))
	if catalogLevel != CatalogLevelRoot && catalogLevel != CatalogLevelReporter {
		return nil, fmt.Errorf("unsupported CATALOG_LEVEL %q: want %q or %q", catalogLevel, CatalogLevelRoot, CatalogLevelReporter)
	}

	concurrency, err := envInt("SPLIT_CONCURRENCY", runtime.GOMAXPROCS(0))
	if err != nil {
		return nil, err
	}
	uploadConcurrency, err := envInt("UPLOAD_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}
	forcePathStyle, err := strconv.ParseBool(gcp.GetEnv("R2_FORCE_PATH_STYLE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid R2_FORCE_PATH_STYLE: %w", err)
	}

	return &SplitterConfig{
		StorageBackend:     backend,
		Bucket:             bucket,
		Endpoint:           gcp.GetEnv("R2_STORAGE", ""),
		Region:             gcp.GetEnv("R2_REGION", "auto"),
		AccessKeyID:        gcp.GetEnv("R2_ACCESS_KEY_ID", ""),
		SecretAccessKey:    gcp.GetEnv("R2_ACCESS_KEY", ""),
		ForcePathStyle:     forcePathStyle,
		GCSCredentialsFile: gcp.GetEnv("GCS_CREDENTIALS_FILE", ""),
		CatalogKey:         gcp.GetEnv("CATALOG_KEY", DefaultCatalogKey),
		CatalogLevel:       catalogLevel,
		Concurrency:        concurrency,
		UploadConcurrency:  uploadConcurrency,
		ProjectID:          gcp.GetEnv("PROJECT_ID", ""),
		CollectionName:     gcp.GetEnv("FIRESTORE_COLLECTION", "volume-splits"),
		WorkflowID:         gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation:   gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		PushgatewayURL:     gcp.GetEnv("PUSHGATEWAY_URL", ""),
	}, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

// openStore connects to the configured storage backend.
func openStore(ctx context.Context, cfg *SplitterConfig) (objectstore.Store, error) {
	if cfg.StorageBackend == BackendGCS {
		store, err := gcp.NewStore(ctx, cfg.Bucket, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := r2.NewStore(ctx, r2.Config{
		Bucket:          cfg.Bucket,
		Endpoint:        cfg.Endpoint,
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		ForcePathStyle:  cfg.ForcePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// LogLevel maps a LOG_LEVEL value to a slog level. Unknown values mean info.
func LogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
