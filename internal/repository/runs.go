package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/common"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

const (
	runTable     = "extract_run"
	outcomeTable = "extract_outcome"

	defaultListLimit = 50
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = common.WrapError(common.ErrNotFound, "run")

var runColumns = []string{"id", "started_at", "finished_at", "status", "total", "succeeded", "failed", "empty"}

type RunRepository interface {
	StartRun(ctx context.Context, runID uuid.UUID, total int, startedAt time.Time) error
	FinishRun(ctx context.Context, runID uuid.UUID, status constants.RunStatus, outcomes []entity.ExtractionOutcome, finishedAt time.Time) error
	Get(ctx context.Context, runID uuid.UUID) (*entity.Run, error)
	List(ctx context.Context, limit int) ([]entity.Run, error)
	Outcomes(ctx context.Context, runID uuid.UUID) ([]entity.RunOutcome, error)
}

type runRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log}
}

func (r *runRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect)
}

func (r *runRepo) StartRun(ctx context.Context, runID uuid.UUID, total int, startedAt time.Time) error {
	query, args := r.builder().Insert(runTable).
		Columns("id", "started_at", "status", "total").
		Values(runID.String(), startedAt.UTC(), string(constants.RunStatusRunning), total).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("extract_run start failed", "run_id", runID, "err", err)
		return dbError("start run", err)
	}
	r.log.Info("extract_run started", "run_id", runID, "total", total)
	return nil
}

// FinishRun stores the final status, the outcome counts and every outcome in
// one transaction.
func (r *runRepo) FinishRun(ctx context.Context, runID uuid.UUID, status constants.RunStatus, outcomes []entity.ExtractionOutcome, finishedAt time.Time) (err error) {
	var succeeded, failed, empty int
	for _, o := range outcomes {
		switch {
		case o.Failed():
			failed++
		case o.Succeeded():
			succeeded++
		default:
			empty++
		}
	}

	tx, err := r.db.Driver.Tx(ctx)
	if err != nil {
		return dbError("begin finish run", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			r.log.Error("extract_run finish failed", "run_id", runID, "err", err)
		}
	}()

	query, args := r.builder().Update(runTable).
		Set("finished_at", finishedAt.UTC()).
		Set("status", string(status)).
		Set("total", len(outcomes)).
		Set("succeeded", succeeded).
		Set("failed", failed).
		Set("empty", empty).
		Where(entsql.EQ("id", runID.String())).
		Query()
	var res sql.Result
	if err = tx.Exec(ctx, query, args, &res); err != nil {
		return dbError("update run", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	if len(outcomes) > 0 {
		ins := r.builder().Insert(outcomeTable).
			Columns("run_id", "seq", "source_name", "checksum", "record_count", "failure_reason", "records_json")
		for _, o := range outcomes {
			records, mErr := json.Marshal(nonNilRecords(o.Records))
			if mErr != nil {
				return fmt.Errorf("encode records of %q: %w", o.SourceName, mErr)
			}
			ins.Values(runID.String(), o.Seq, o.SourceName, o.Checksum, len(o.Records), o.FailureReason, string(records))
		}
		query, args = ins.Query()
		if err = tx.Exec(ctx, query, args, nil); err != nil {
			return dbError("insert outcomes", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return dbError("commit finish run", err)
	}
	r.log.Info("extract_run finished",
		"run_id", runID,
		"status", status,
		"succeeded", succeeded,
		"failed", failed,
		"empty", empty,
	)
	return nil
}

func (r *runRepo) Get(ctx context.Context, runID uuid.UUID) (*entity.Run, error) {
	query, args := r.builder().Select(runColumns...).
		From(entsql.Table(runTable)).
		Where(entsql.EQ("id", runID.String())).
		Query()
	runs, err := r.queryRuns(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return &runs[0], nil
}

// List returns the most recent runs first.
func (r *runRepo) List(ctx context.Context, limit int) ([]entity.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query, args := r.builder().Select(runColumns...).
		From(entsql.Table(runTable)).
		OrderBy(entsql.Desc("started_at")).
		Limit(limit).
		Query()
	return r.queryRuns(ctx, query, args)
}

func (r *runRepo) queryRuns(ctx context.Context, query string, args []any) ([]entity.Run, error) {
	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, query, args, &rows); err != nil {
		return nil, dbError("query runs", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []entity.Run{}
	for rows.Next() {
		var (
			run      entity.Run
			finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &finished, &run.Status, &run.Total, &run.Succeeded, &run.Failed, &run.Empty); err != nil {
			return nil, dbError("scan run", err)
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate runs", err)
	}
	return runs, nil
}

// Outcomes returns the stored outcomes of a run in input order.
func (r *runRepo) Outcomes(ctx context.Context, runID uuid.UUID) ([]entity.RunOutcome, error) {
	query, args := r.builder().
		Select("run_id", "seq", "source_name", "checksum", "record_count", "failure_reason", "records_json").
		From(entsql.Table(outcomeTable)).
		Where(entsql.EQ("run_id", runID.String())).
		OrderBy(entsql.Asc("seq")).
		Query()

	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, query, args, &rows); err != nil {
		return nil, dbError("query outcomes", err)
	}
	defer func() { _ = rows.Close() }()

	out := []entity.RunOutcome{}
	for rows.Next() {
		var o entity.RunOutcome
		if err := rows.Scan(&o.RunID, &o.Seq, &o.SourceName, &o.Checksum, &o.RecordCount, &o.FailureReason, &o.RecordsJSON); err != nil {
			return nil, dbError("scan outcome", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate outcomes", err)
	}
	return out, nil
}

func nonNilRecords(records []entity.ChildRecord) []entity.ChildRecord {
	if records == nil {
		return []entity.ChildRecord{}
	}
	return records
}

func dbError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrDatabase, err)
}

// IsNotFound reports whether err is a missing-run error.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
