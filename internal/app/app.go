package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/kk-extractor/internal/common"
	"github.com/joseph-ayodele/kk-extractor/internal/export"
	"github.com/joseph-ayodele/kk-extractor/internal/extract"
	"github.com/joseph-ayodele/kk-extractor/internal/ingest"
	"github.com/joseph-ayodele/kk-extractor/internal/llm"
	"github.com/joseph-ayodele/kk-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/kk-extractor/internal/llm/vertex"
	"github.com/joseph-ayodele/kk-extractor/internal/pipeline"
	"github.com/joseph-ayodele/kk-extractor/internal/repository"
)

// App holds the wired extraction stack shared by the CLI and the daemon.
type App struct {
	Config   *common.Config
	Logger   *slog.Logger
	Pipeline *pipeline.Service
	Exporter *export.Service

	// DB and Runs are nil when run history is disabled.
	DB   *repository.DB
	Runs repository.RunRepository

	closers []func()
}

// Option customises Build.
type Option func(*options)

type options struct {
	generator llm.Generator
}

// WithGenerator replaces the configured model client.
func WithGenerator(gen llm.Generator) Option {
	return func(o *options) { o.generator = gen }
}

// Build wires the model client, extractor, scheduler, run history and export
// service from cfg. Call Close when done.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{Config: cfg, Logger: logger}

	gen := o.generator
	if gen == nil {
		var err error
		gen, err = a.newGenerator(ctx)
		if err != nil {
			return nil, err
		}
	}

	var preflight extract.Preflighter
	if cfg.Batch.PDFPreflight {
		preflight = extract.NewPDFPreflight()
	}
	retry := llm.RetryPolicy{
		MaxRetries:   cfg.Batch.MaxRetries,
		InitialDelay: cfg.Batch.InitialBackoff,
		Multiplier:   2,
		Logger:       logger,
	}
	ex, err := extract.NewExtractor(logger, gen, retry, preflight)
	if err != nil {
		a.Close()
		return nil, err
	}
	docs := extract.NewCachedExtractor(ex, cfg.Batch.CacheTTL, logger)

	var recorder pipeline.RunRecorder
	if !cfg.Database.Disabled {
		db, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open run history: %w", err)
		}
		a.DB = db
		a.Runs = repository.NewRunRepository(db, logger)
		a.closers = append(a.closers, func() { db.Close(logger) })
		recorder = a.Runs
	}

	a.Pipeline = pipeline.NewService(
		logger,
		ingest.NewExpander(logger),
		pipeline.NewScheduler(logger, docs, cfg.Batch.Concurrency),
		recorder,
		cfg.Batch.MaxUploadBytes(),
	)
	a.Exporter = export.NewService(logger)
	return a, nil
}

func (a *App) newGenerator(ctx context.Context) (llm.Generator, error) {
	c := a.Config.LLM
	switch c.Provider {
	case common.ProviderVertex:
		client, err := vertex.NewClient(ctx, vertex.Config{
			ProjectID:   c.ProjectID,
			Region:      c.Region,
			Model:       c.Model,
			Temperature: c.Temperature,
		}, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.Logger.Warn("vertex client close failed", "error", err)
			}
		})
		a.Logger.Info("vertex client initialized", "model", c.Model, "region", c.Region)
		return client, nil
	case common.ProviderGemini:
		a.Logger.Info("gemini client initialized", "model", c.Model)
		return gemini.NewClient(gemini.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: c.Temperature,
			Timeout:     c.Timeout,
		}, a.Logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", c.Provider)
	}
}

// Close releases everything Build opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
