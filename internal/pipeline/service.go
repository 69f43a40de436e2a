package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/common"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
	"github.com/joseph-ayodele/kk-extractor/internal/ingest"
)

// RunRecorder persists run history. Implementations must tolerate being
// called from the goroutine that runs the batch.
type RunRecorder interface {
	StartRun(ctx context.Context, runID uuid.UUID, total int, startedAt time.Time) error
	FinishRun(ctx context.Context, runID uuid.UUID, status constants.RunStatus, outcomes []entity.ExtractionOutcome, finishedAt time.Time) error
}

// Result is everything a caller needs to present a finished batch.
type Result struct {
	RunID       uuid.UUID                  `json:"run_id"`
	Outcomes    []entity.ExtractionOutcome `json:"outcomes"`
	InputErrors []entity.InputError        `json:"input_errors"`
	Summary     Summary                    `json:"summary"`
}

// Service validates, expands and schedules one batch of inputs.
type Service struct {
	Logger         *slog.Logger
	Expander       *ingest.Expander
	Scheduler      *Scheduler
	Recorder       RunRecorder // optional
	MaxUploadBytes int64
}

func NewService(logger *slog.Logger, exp *ingest.Expander, sched *Scheduler, rec RunRecorder, maxUploadBytes int64) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Logger:         logger,
		Expander:       exp,
		Scheduler:      sched,
		Recorder:       rec,
		MaxUploadBytes: maxUploadBytes,
	}
}

// Validate rejects the whole selection if any input has the wrong type or size.
func (s *Service) Validate(inputs []entity.Input) error {
	return ingest.ValidateInputs(inputs, s.MaxUploadBytes)
}

// Run processes inputs end to end. The only error it returns is the batch-wide
// validation failure; per-document problems are reported in the Result.
func (s *Service) Run(ctx context.Context, runID uuid.UUID, inputs []entity.Input, progress entity.ProgressFunc) (Result, error) {
	if err := s.Validate(inputs); err != nil {
		return Result{RunID: runID}, err
	}
	if progress == nil {
		progress = func(entity.ProgressSnapshot) {}
	}
	ctx = common.WithRunID(ctx, runID.String())
	log := common.LoggerFrom(ctx, s.Logger)
	start := time.Now()

	progress(entity.ProgressSnapshot{Processed: 0, Total: len(inputs), Current: constants.ProgressPreparing})

	exp := s.Expander.Expand(ctx, inputs)
	total := len(exp.Units)
	log.Info("pipeline.run.expanded", "inputs", len(inputs), "units", total, "input_errors", len(exp.Errors))

	s.recordStart(ctx, log, runID, total, start)

	var outcomes []entity.ExtractionOutcome
	if total == 0 {
		progress(entity.ProgressSnapshot{Processed: 0, Total: 0, Current: constants.ProgressDone, Done: true})
		outcomes = []entity.ExtractionOutcome{}
	} else {
		progress(entity.ProgressSnapshot{Processed: 0, Total: total, Current: constants.ProgressStarting})
		outcomes = s.Scheduler.Run(ctx, exp.Units, progress)
	}

	res := Result{
		RunID:       runID,
		Outcomes:    outcomes,
		InputErrors: exp.Errors,
		Summary:     Aggregate(outcomes),
	}
	if res.InputErrors == nil {
		res.InputErrors = []entity.InputError{}
	}

	s.recordFinish(ctx, log, runID, outcomes)
	log.Info("pipeline.run.done",
		"units", total,
		"successful", len(res.Summary.Successful),
		"failed", len(res.Summary.Failed),
		"empty", res.Summary.Empty,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (s *Service) recordStart(ctx context.Context, log *slog.Logger, runID uuid.UUID, total int, at time.Time) {
	if s.Recorder == nil {
		return
	}
	if err := s.Recorder.StartRun(context.WithoutCancel(ctx), runID, total, at); err != nil {
		log.Warn("pipeline.run.record_start_failed", "error", err)
	}
}

func (s *Service) recordFinish(ctx context.Context, log *slog.Logger, runID uuid.UUID, outcomes []entity.ExtractionOutcome) {
	if s.Recorder == nil {
		return
	}
	status := constants.RunStatusCompleted
	if ctx.Err() != nil {
		status = constants.RunStatusFailed
	}
	if err := s.Recorder.FinishRun(context.WithoutCancel(ctx), runID, status, outcomes, time.Now().UTC()); err != nil {
		log.Warn("pipeline.run.record_finish_failed", "error", err)
	}
}
