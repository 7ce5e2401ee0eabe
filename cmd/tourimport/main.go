// Command tourimport imports travel tour content and media from TSV
// exports or live pages into the content database and object storage.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/voyagekit/tourimport/pkg/tourimport"
	"github.com/voyagekit/tourimport/pkg/tourimport/config"
	"github.com/voyagekit/tourimport/pkg/tourimport/migrate"
	"github.com/voyagekit/tourimport/pkg/tourimport/parser"
)

var (
	flagLanguage string
	flagDryRun   bool
	flagOut      string
	flagBatch    int
	flagPause    time.Duration

	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

	rootCmd = &cobra.Command{
		Use:   "tourimport",
		Short: "Import tour content and media into the content pipeline",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional; real environment always wins.
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLanguage, "language", "", "language to import (default from TOURIMPORT_LANGUAGE)")
	rootCmd.PersistentFlags().StringVar(&flagOut, "out", "", "write the report to a file instead of stdout")

	importCmd := &cobra.Command{
		Use:   "import <file.tsv>",
		Short: "Import tour records from a TSV export",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	importCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "validate and report without writing rows or objects")
	rootCmd.AddCommand(importCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "validate <file.tsv>",
		Short: "Validate a TSV export without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrape one page URL and import it as a tour",
		Args:  cobra.ExactArgs(1),
		RunE:  runScrape,
	})

	migrateCmd := &cobra.Command{
		Use:   "migrate-images",
		Short: "Re-migrate stored images from their recorded source URLs",
		Args:  cobra.NoArgs,
		RunE:  runMigrateImages,
	}
	migrateCmd.Flags().IntVar(&flagBatch, "batch-size", migrate.DefaultBatchSize, "images migrated concurrently per batch")
	migrateCmd.Flags().DurationVar(&flagPause, "pause", migrate.DefaultPause, "delay between batches")
	rootCmd.AddCommand(migrateCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show row counts and storage usage",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	})
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagLanguage != "" {
		cfg.Language = flagLanguage
	}
	return cfg, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := cfg.BuildService(cmd.Context(), logger)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := parser.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}
	records := parser.Records(rows, cfg.Language)

	report, err := svc.ImportRecords(cmd.Context(), records, tourimport.ImportOptions{
		Language: cfg.Language,
		DryRun:   flagDryRun,
	})
	if err != nil {
		return err
	}

	return writeReport(tourimport.RenderReport(report))
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := parser.Validate(f, cfg.Language)
	if err != nil {
		return fmt.Errorf("validating %s: %w", args[0], err)
	}

	if err := writeReport(tourimport.RenderValidationReport(report)); err != nil {
		return err
	}
	if report.Violations > 0 {
		return fmt.Errorf("%d of %d rows invalid", len(report.InvalidRecords), report.TotalRows)
	}
	return nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := cfg.BuildService(cmd.Context(), logger)
	if err != nil {
		return err
	}

	result, err := svc.ImportFromURL(cmd.Context(), args[0], tourimport.ImportOptions{
		Language: cfg.Language,
	})
	if err != nil {
		return err
	}

	logger.Info("page imported",
		"slug", result.Slug,
		"page_id", result.PageID,
		"images", len(result.Images),
		"image_errors", len(result.ImageErrors),
		"skipped", result.SkippedImages)
	return nil
}

func runMigrateImages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, repo, err := cfg.BuildPipeline(cmd.Context(), logger)
	if err != nil {
		return err
	}

	jobs, err := migrate.JobsFromRepository(cmd.Context(), repo)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		logger.Info("nothing to migrate")
		return nil
	}

	runner := migrate.NewRunner(svc,
		migrate.WithBatchSize(flagBatch),
		migrate.WithPause(flagPause),
		migrate.WithLogger(logger),
		migrate.WithProgress(func(p migrate.Progress) {
			fmt.Fprintf(os.Stderr, "\r[%d/%d tours] %d/%d images (%d skipped, %d failed)",
				p.CurrentTour, p.TotalTours, p.Completed+p.Skipped+p.Failed, p.TotalImages, p.Skipped, p.Failed)
		}),
	)

	result, err := runner.Run(cmd.Context(), jobs)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	report := &tourimport.ImportReport{
		TotalRecords:   result.TotalTours,
		Succeeded:      result.TotalTours,
		TotalImages:    result.TotalImages,
		MigratedImages: result.Migrated,
		SkippedImages:  result.Skipped,
		FailedImages:   result.Failed,
		StorageBytes:   result.StorageBytes,
		Errors:         result.Errors,
		Duration:       result.Duration,
	}
	return writeReport(tourimport.RenderReport(report))
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := cfg.BuildService(cmd.Context(), logger)
	if err != nil {
		return err
	}

	stats, err := svc.Stats(cmd.Context())
	if err != nil {
		return err
	}

	return writeReport(tourimport.RenderStats(stats))
}

func writeReport(text string) error {
	if flagOut == "" {
		fmt.Println(text)
		return nil
	}
	if err := os.WriteFile(flagOut, []byte(text+"\n"), 0644); err != nil {
		return fmt.Errorf("writing report to %s: %w", flagOut, err)
	}
	logger.Info("report written", "path", flagOut)
	return nil
}
