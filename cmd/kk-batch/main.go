package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/app"
	"github.com/joseph-ayodele/kk-extractor/internal/common"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
	"github.com/joseph-ayodele/kk-extractor/internal/export"
	"github.com/joseph-ayodele/kk-extractor/internal/ingest"
	"github.com/joseph-ayodele/kk-extractor/internal/storage"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		out         = flag.String("out", constants.DefaultExportFileName, "output XLSX path (local file or gs://bucket/object)")
		concurrency = flag.Int("concurrency", 0, "documents per wave (default KK_CONCURRENCY or 5)")
		skipHidden  = flag.Bool("skip-hidden", true, "skip hidden files and directories")
		noHistory   = flag.Bool("no-history", false, "do not record the run in the history database")
	)
	flag.Usage = func() {
		printError("usage: kk-batch [flags] <file-or-dir>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if *concurrency > 0 {
		cfg.Batch.Concurrency = *concurrency
	}
	if *noHistory {
		cfg.Database.Disabled = true
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: common.ParseLogLevel(cfg.LogLevel),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Collect inputs
	collector := ingest.NewFSCollector(*skipHidden, logger)
	inputs, stats, err := collector.Collect(flag.Args())
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("inputs collected", "scanned", stats.Scanned, "matched", stats.Matched, "skipped", stats.Skipped, "failed", stats.Failed)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Pipeline.Validate(inputs); err != nil {
		printError("Selection rejected:\n")
		var verrs common.ValidationErrors
		if errors.As(err, &verrs) {
			for _, msg := range verrs.Messages() {
				printError("  • %s\n", msg)
			}
		} else {
			printError("  • %v\n", err)
		}
		os.Exit(1)
	}

	runID := uuid.New()
	res, err := a.Pipeline.Run(ctx, runID, inputs, printProgress)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	for _, ie := range res.InputErrors {
		printError("Skipped %s: %s\n", ie.Name, ie.Reason)
	}
	if len(res.Summary.Failed) > 0 {
		fmt.Printf("\nFailed documents:\n")
		for _, o := range res.Summary.Failed {
			fmt.Printf("  • %s: %s\n", o.SourceName, o.FailureReason)
		}
	}

	records := 0
	for _, o := range res.Summary.Successful {
		records += len(o.Records)
	}
	fmt.Printf("\nExtraction complete!\n")
	fmt.Printf("- Run: %s\n", runID)
	fmt.Printf("- Documents: %d\n", len(res.Outcomes))
	fmt.Printf("- Successful: %d (%d records)\n", len(res.Summary.Successful), records)
	fmt.Printf("- Failed: %d\n", len(res.Summary.Failed))
	fmt.Printf("- Empty: %d\n", res.Summary.Empty)

	xlsxBytes, err := a.Exporter.WorkbookXLSX(res.Outcomes)
	if errors.Is(err, export.ErrNothingToExport) {
		fmt.Printf("- Output: nothing to export\n")
		return
	}
	if err != nil {
		logger.Error("failed to build workbook", "error", err)
		os.Exit(1)
	}

	loc, err := writeOutput(ctx, *out, xlsxBytes, logger)
	if err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}
	fmt.Printf("- Output: %s\n", loc)
}

func printProgress(s entity.ProgressSnapshot) {
	fmt.Printf("[%d/%d] %s\n", s.Processed, s.Total, s.Current)
}

func writeOutput(ctx context.Context, target string, data []byte, logger *slog.Logger) (string, error) {
	root, name, err := storage.SplitTarget(target)
	if err != nil {
		return "", err
	}
	sink, err := storage.Open(ctx, root, logger)
	if err != nil {
		return "", err
	}
	defer func() { _ = sink.Close() }()
	return sink.Write(ctx, name, data)
}
