package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/caselawarchive/internal/gcp"
	"github.com/Lllllllleong/caselawarchive/internal/models"
	"github.com/Lllllllleong/caselawarchive/internal/services"
)

var (
	splitterInstance *services.PDFSplitterFunction
	once             sync.Once
	initErr          error
)

func init() {
	level := services.LogLevel(gcp.GetEnv("LOG_LEVEL", "info"))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	functions.CloudEvent("SplitVolumePdfs", splitVolumePdfs)
}

// main is required by the Go Functions Framework.
func main() {}

// splitVolumePdfs runs one split batch. The event data is a models.SplitRequest; an
// empty payload processes the whole catalog.
func splitVolumePdfs(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		splitterInstance, initErr = services.NewPDFSplitterFunction(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var req models.SplitRequest
	if data := e.Data(); len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			slog.Error("Failed to unmarshal event data", "error", err, "data", string(data))
			return fmt.Errorf("json.Unmarshal: %w", err)
		}
	}

	resp, err := splitterInstance.Process(ctx, &req)
	if err != nil {
		return err
	}
	if resp.Summary.Failed > 0 {
		// Failed volumes are recorded individually; the batch itself completed.
		slog.Warn("Split batch finished with failed volumes.", "failed", resp.Summary.Failed, "total", resp.Summary.Total)
	}
	return nil
}
