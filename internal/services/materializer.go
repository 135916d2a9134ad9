package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/Lllllllleong/caselawarchive/internal/models"
	"github.com/Lllllllleong/caselawarchive/internal/objectstore"
)

// LocalVolume is a volume PDF staged on local disk. Release removes it.
type LocalVolume struct {
	Path   string
	SHA256 string
	Size   int64
	dir    string
}

// Open opens the staged PDF for reading.
func (lv *LocalVolume) Open() (*os.File, error) {
	return os.Open(lv.Path)
}

// Release deletes the volume's temp directory. It is safe to call more than once.
func (lv *LocalVolume) Release() {
	if lv.dir == "" {
		return
	}
	if err := os.RemoveAll(lv.dir); err != nil {
		slog.Warn("Failed to remove temp directory.", "path", lv.dir, "error", err)
	}
	lv.dir = ""
}

// VolumeMaterializer downloads volume PDFs into per-volume temp directories.
type VolumeMaterializer struct {
	store   objectstore.Store
	tempDir string // parent of the per-volume directories; "" means os.TempDir()
}

func NewVolumeMaterializer(store objectstore.Store, tempDir string) *VolumeMaterializer {
	return &VolumeMaterializer{store: store, tempDir: tempDir}
}

// PDFKey is the storage key of a volume's PDF.
func PDFKey(v models.Volume) string {
	return path.Join(v.ReporterSlug, v.VolumeFolder, v.VolumeNumber+".pdf")
}

// Materialize streams the volume PDF to local disk while hashing it. Failures return a
// *DownloadError and leave nothing behind.
func (m *VolumeMaterializer) Materialize(ctx context.Context, v models.Volume) (*LocalVolume, error) {
	key := PDFKey(v)

	dir, err := os.MkdirTemp(m.tempDir, "volume-*")
	if err != nil {
		return nil, &DownloadError{Key: key, Err: fmt.Errorf("failed to create temp dir: %w", err)}
	}
	lv := &LocalVolume{Path: filepath.Join(dir, "source.pdf"), dir: dir}
	staged := false
	defer func() {
		if !staged {
			lv.Release()
		}
	}()

	if err := m.stream(ctx, key, lv); err != nil {
		return nil, &DownloadError{Key: key, Err: err}
	}
	staged = true
	return lv, nil
}

func (m *VolumeMaterializer) stream(ctx context.Context, key string, lv *LocalVolume) error {
	r, err := m.store.Get(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()

	localFile, err := os.Create(lv.Path)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", lv.Path, err)
	}
	defer localFile.Close()

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(localFile, hash), r)
	if err != nil {
		return fmt.Errorf("failed to copy object to local file: %w", err)
	}
	if err := localFile.Close(); err != nil {
		return fmt.Errorf("failed to flush local file: %w", err)
	}
	lv.Size = n
	lv.SHA256 = hex.EncodeToString(hash.Sum(nil))
	return nil
}
