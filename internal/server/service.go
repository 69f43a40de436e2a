package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/async"
	"github.com/joseph-ayodele/kk-extractor/internal/common"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
	"github.com/joseph-ayodele/kk-extractor/internal/export"
	"github.com/joseph-ayodele/kk-extractor/internal/pipeline"
	"github.com/joseph-ayodele/kk-extractor/internal/repository"
	"github.com/joseph-ayodele/kk-extractor/internal/storage"
)

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Config wires the HTTP server. Runs, Archive and Health are optional.
type Config struct {
	Pipeline       *pipeline.Service
	Exporter       *export.Service
	Runs           repository.RunRepository
	Archive        storage.Sink
	Health         HealthChecker
	MaxUploadBytes int64
	Retention      time.Duration
}

// Server is the HTTP front of the extraction pipeline.
type Server struct {
	pipeline       *pipeline.Service
	exporter       *export.Service
	runs           repository.RunRepository
	archive        storage.Sink
	health         HealthChecker
	maxUploadBytes int64

	registry *Registry
	queue    async.Queue
	logger   *slog.Logger
}

func NewServer(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Exporter == nil {
		cfg.Exporter = export.NewService(logger)
	}
	return &Server{
		pipeline:       cfg.Pipeline,
		exporter:       cfg.Exporter,
		runs:           cfg.Runs,
		archive:        cfg.Archive,
		health:         cfg.Health,
		maxUploadBytes: cfg.MaxUploadBytes,
		registry:       NewRegistry(cfg.Retention),
		logger:         logger,
	}
}

// UseQueue sets the queue that POST /v1/extractions submits to. The queue's
// handler should be s.ProcessJob.
func (s *Server) UseQueue(q async.Queue) {
	s.queue = q
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))
	if s.maxUploadBytes > 0 {
		r.MaxMultipartMemory = s.maxUploadBytes
	}

	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/v1")
	v1.POST("/extractions", s.handleCreateExtraction)
	v1.GET("/extractions/:id", s.handleGetExtraction)
	v1.GET("/extractions/:id/events", s.handleEvents)
	v1.GET("/extractions/:id/export", s.handleExport)
	v1.GET("/runs", s.handleListRuns)
	return r
}

// ProcessJob runs one queued batch and publishes its progress.
func (s *Server) ProcessJob(ctx context.Context, job async.Job) {
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
	}
	log := common.LoggerFrom(common.WithRunID(ctx, job.RunID.String()), s.logger)

	s.registry.SetRunning(job.RunID)
	res, err := s.pipeline.Run(ctx, job.RunID, job.Inputs, func(snap entity.ProgressSnapshot) {
		s.registry.Publish(job.RunID, snap)
	})
	if err != nil {
		log.Error("server.run.failed", "error", err)
		s.registry.Finish(job.RunID, constants.RunStatusFailed, nil, err)
		return
	}

	status := constants.RunStatusCompleted
	if ctx.Err() != nil {
		status = constants.RunStatusFailed
	}
	s.archiveExport(ctx, log, job.RunID, &res)
	s.registry.Finish(job.RunID, status, &res, ctx.Err())
}

func (s *Server) archiveExport(ctx context.Context, log *slog.Logger, runID uuid.UUID, res *pipeline.Result) {
	if s.archive == nil || len(res.Summary.Successful) == 0 {
		return
	}
	data, err := s.exporter.WorkbookXLSX(res.Outcomes)
	if err != nil {
		if !errors.Is(err, export.ErrNothingToExport) {
			log.Warn("server.archive.export_failed", "error", err)
		}
		return
	}
	name := path.Join("runs", runID.String(), constants.DefaultExportFileName)
	loc, err := s.archive.Write(context.WithoutCancel(ctx), name, data)
	if err != nil {
		log.Warn("server.archive.write_failed", "error", err)
		return
	}
	log.Info("server.archive.ok", "location", loc)
}

type errorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

func (s *Server) abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health.HealthCheck(c.Request.Context(), 2*time.Second); err != nil {
			s.logger.Warn("server.health.db_failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
