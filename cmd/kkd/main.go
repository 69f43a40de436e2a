package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/kk-extractor/internal/app"
	"github.com/joseph-ayodele/kk-extractor/internal/async"
	"github.com/joseph-ayodele/kk-extractor/internal/common"
	"github.com/joseph-ayodele/kk-extractor/internal/server"
	"github.com/joseph-ayodele/kk-extractor/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := common.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: common.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srvCfg := server.Config{
		Pipeline:       a.Pipeline,
		Exporter:       a.Exporter,
		MaxUploadBytes: cfg.Batch.MaxUploadBytes(),
	}
	if a.Runs != nil {
		srvCfg.Runs = a.Runs
		srvCfg.Health = a.DB
	}
	if cfg.Export.Bucket != "" {
		sink, err := storage.Open(ctx, "gs://"+cfg.Export.Bucket, logger)
		if err != nil {
			logger.Error("failed to open export bucket", "bucket", cfg.Export.Bucket, "error", err)
			os.Exit(1)
		}
		defer func() { _ = sink.Close() }()
		srvCfg.Archive = sink
	}

	srv := server.NewServer(srvCfg, logger)
	queue := async.NewRunQueue(srv.ProcessJob, logger,
		async.WithWorkers(2),
		async.WithQueueSize(64),
	)
	srv.UseQueue(queue)

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("kkd listening", "addr", cfg.Server.HTTPAddr, "provider", cfg.LLM.Provider, "history", a.Runs != nil)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	queue.Shutdown(shutdownCtx)
}
