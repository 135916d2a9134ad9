package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/caselawarchive/internal/gcp"
	"github.com/Lllllllleong/caselawarchive/internal/models"
	"github.com/Lllllllleong/caselawarchive/internal/services"
)

var (
	reporter        string
	publicationYear int
	concurrency     int
	dryRun          bool
	skipExisting    bool
	envFile         string
)

var rootCmd = &cobra.Command{
	Use:   "split-pdfs",
	Short: "Split archive volume PDFs into per-case PDFs",
	Long: `split-pdfs reads the volume catalog, downloads each selected volume PDF and
uploads one PDF per case under {reporter}/{volume_folder}/case-pdfs/.

Volumes can be selected by reporter or by publication year, not both. Without a
filter every volume in the catalog is processed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		setupLogging(os.Stderr)
		return nil
	},
	RunE: runSplit,
}

func init() {
	rootCmd.Flags().StringVarP(&reporter, "reporter", "r", "", "Only process volumes of this reporter slug")
	rootCmd.Flags().IntVarP(&publicationYear, "publication-year", "y", 0, "Only process volumes published in this year")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Volumes processed in parallel (default SPLIT_CONCURRENCY or the CPU count)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the selected volumes without processing them")
	rootCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Skip volumes whose case PDFs are all published already")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading configuration")
}

// Execute runs the root command. SIGINT and SIGTERM stop dispatching new volumes.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setupLogging(w io.Writer) {
	level := services.LogLevel(gcp.GetEnv("LOG_LEVEL", "info"))
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// buildRequest turns the parsed flags into a split request.
func buildRequest(cmd *cobra.Command) (*models.SplitRequest, error) {
	req := &models.SplitRequest{
		Reporter:     reporter,
		Concurrency:  concurrency,
		DryRun:       dryRun,
		SkipExisting: skipExisting,
	}
	if cmd.Flags().Changed("publication-year") {
		year := publicationYear
		req.PublicationYear = &year
	}
	if req.Reporter != "" && req.PublicationYear != nil {
		return nil, fmt.Errorf("--reporter and --publication-year are mutually exclusive")
	}
	if concurrency < 0 {
		return nil, fmt.Errorf("--concurrency must not be negative")
	}
	return req, nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	splitter, err := services.NewPDFSplitterFunction(ctx)
	if err != nil {
		return err
	}
	defer splitter.Close()

	resp, err := splitter.Process(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if resp.Status == services.StatusDryRun {
		printPlan(out, resp)
		return nil
	}
	printSummary(out, resp)
	if resp.Summary.Failed > 0 {
		return fmt.Errorf("%d of %d volumes failed", resp.Summary.Failed, resp.Summary.Total)
	}
	return nil
}

func printPlan(w io.Writer, resp *models.SplitResponse) {
	for _, v := range resp.Volumes {
		fmt.Fprintln(w, v)
	}
	fmt.Fprintf(w, "%d volumes would be processed\n", resp.Summary.Total)
}

func printSummary(w io.Writer, resp *models.SplitResponse) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Reporter", "Volume", "Status", "Cases", "Published", "Detail"})
	for _, o := range resp.Summary.Outcomes {
		detail := o.Reason
		if o.Err != nil {
			detail = o.Err.Error()
		}
		table.Append([]string{
			o.Volume.ReporterSlug,
			o.Volume.VolumeNumber,
			string(o.Status),
			strconv.Itoa(o.Cases),
			strconv.Itoa(o.Published),
			detail,
		})
	}
	table.Render()

	s := resp.Summary
	fmt.Fprintf(w, "%d volumes: %d processed, %d skipped, %d failed; %d case PDFs published\n",
		s.Total, s.Processed, s.Skipped, s.Failed, s.CasesPublished)
}
