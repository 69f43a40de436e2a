package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/kk-extractor/internal/app"
	"github.com/joseph-ayodele/kk-extractor/internal/common"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
	"github.com/joseph-ayodele/kk-extractor/internal/ingest"
)

// llm runs the extraction of one PDF repeatedly, to eyeball model stability.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: llm <file.pdf> [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	times := 1
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	cfg.Database.Disabled = true
	cfg.Batch.CacheTTL = 0
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	in, err := ingest.NewFSCollector(false, logger).ReadPath(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("build", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var last []entity.ExtractionOutcome
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(context.Background(), 2*time.Minute)
		start := time.Now()
		res, err := a.Pipeline.Run(runCtx, uuid.New(), []entity.Input{in}, nil)
		cancelRun()
		if err != nil {
			logger.Error("pipeline.run.error", "iter", i, "err", err)
			os.Exit(1)
		}
		for _, o := range res.Outcomes {
			logger.Info("pipeline.run.ok",
				"iter", i,
				"name", o.SourceName,
				"records", len(o.Records),
				"failure", o.FailureReason,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}
		last = res.Outcomes

		if i < times {
			time.Sleep(750 * time.Millisecond)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(last); err != nil {
		logger.Error("encode", "error", err)
		os.Exit(1)
	}
}
