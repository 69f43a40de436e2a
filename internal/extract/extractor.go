package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
	"github.com/joseph-ayodele/kk-extractor/internal/llm"
)

// Extractor sends one Family Card to the model and classifies the result.
// It holds no per-call state and is safe for concurrent use.
type Extractor struct {
	Logger    *slog.Logger
	Generator llm.Generator
	Retry     llm.RetryPolicy
	Preflight Preflighter // optional

	prompt string
	schema map[string]any
	valid  *llm.CompiledSchema
}

func NewExtractor(logger *slog.Logger, gen llm.Generator, retry llm.RetryPolicy, preflight Preflighter) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if gen == nil {
		return nil, errors.New("extract: generator is required")
	}
	schema := llm.BuildRecordJSONSchema()
	valid, err := llm.CompileSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if retry.Logger == nil {
		retry.Logger = logger
	}
	return &Extractor{
		Logger:    logger,
		Generator: gen,
		Retry:     retry,
		Preflight: preflight,
		prompt:    llm.BuildExtractionPrompt(),
		schema:    schema,
		valid:     valid,
	}, nil
}

// Extract implements DocumentExtractor.
func (e *Extractor) Extract(ctx context.Context, unit entity.DocumentUnit) entity.ExtractionOutcome {
	start := time.Now()
	out := entity.ExtractionOutcome{
		Seq:        unit.Seq,
		SourceName: unit.Title(),
		Checksum:   unit.Checksum,
	}
	log := e.Logger.With("name", unit.Name, "seq", unit.Seq)
	log.Info("extract.document.start", "bytes", len(unit.Content))

	if e.Preflight != nil {
		pages, err := e.Preflight.Check(unit.Content)
		if err != nil {
			log.Warn("extract.document.preflight_failed", "error", err)
			out.FailureReason = constants.ReasonGeneric
			return out
		}
		log.Debug("extract.document.preflight_ok", "pages", pages)
	}

	req := llm.GenerateRequest{
		Name:     unit.Name,
		Document: unit.Content,
		MIMEType: unit.MIMEType,
		Prompt:   e.prompt,
		Schema:   e.schema,
	}
	text, err := llm.Retry(ctx, e.Retry, func(ctx context.Context) (string, error) {
		return e.Generator.Generate(ctx, req)
	})
	if err != nil {
		out.FailureReason = failureReason(ctx, err)
		log.Error("extract.document.failed",
			"error", err,
			"rate_limited", llm.IsRateLimited(err),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out
	}

	records, err := e.parseRecords(text, log)
	if err != nil {
		out.FailureReason = constants.ReasonMalformed
		log.Error("extract.document.schema_validation_failed",
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out
	}
	out.Records = records

	log.Info("extract.document.ok",
		"records", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// parseRecords validates strictly first, then retries once after the lenient
// normalization pass. Empty text is the valid "nothing found" answer.
func (e *Extractor) parseRecords(text string, log *slog.Logger) ([]entity.ChildRecord, error) {
	body := llm.StripCodeFence(text)
	if body == "" {
		return []entity.ChildRecord{}, nil
	}
	raw := []byte(body)

	if err := e.valid.Validate(raw); err != nil {
		cleaned, dropped, sErr := llm.NormalizeRecordsJSON(raw, log)
		if sErr != nil {
			return nil, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := e.valid.Validate(cleaned); vErr != nil {
			return nil, fmt.Errorf("schema validation failed: %w", vErr)
		}
		log.Warn("extract.document.lenient_sanitize_applied", "dropped", dropped)
		raw = cleaned
	}

	var records []entity.ChildRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}
	if records == nil {
		records = []entity.ChildRecord{}
	}
	return records, nil
}

func failureReason(ctx context.Context, err error) string {
	switch {
	case llm.IsRateLimited(err):
		return constants.ReasonRateLimited
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return constants.ReasonCancelled
	default:
		return constants.ReasonGeneric
	}
}
