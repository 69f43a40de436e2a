package pipeline

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
	"github.com/joseph-ayodele/kk-extractor/internal/extract"
)

// DefaultConcurrency bounds in-flight model calls.
const DefaultConcurrency = 5

// Scheduler runs extractions in consecutive waves of at most Concurrency
// units. A wave starts only after every unit of the previous one settled.
type Scheduler struct {
	Logger      *slog.Logger
	Extractor   extract.DocumentExtractor
	Concurrency int
}

func NewScheduler(logger *slog.Logger, ex extract.DocumentExtractor, concurrency int) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Scheduler{Logger: logger, Extractor: ex, Concurrency: concurrency}
}

// runState is the shared completion state of one Run. mu guards every field
// and is held while progress is emitted, so emissions are strictly ordered.
type runState struct {
	mu        sync.Mutex
	total     int
	processed int
	outcomes  []entity.ExtractionOutcome
	progress  entity.ProgressFunc
}

func (st *runState) complete(out entity.ExtractionOutcome, name string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.processed++
	st.outcomes = append(st.outcomes, out)
	if st.progress != nil {
		st.progress(entity.ProgressSnapshot{Processed: st.processed, Total: st.total, Current: name})
	}
}

// Run extracts every unit and returns one outcome per unit in unit order.
// Progress is emitted after each unit settles and once more, with Done set,
// at the end. If ctx is cancelled, waves that have not started yet are not
// launched and their units are settled with a cancellation failure.
func (s *Scheduler) Run(ctx context.Context, units []entity.DocumentUnit, progress entity.ProgressFunc) []entity.ExtractionOutcome {
	start := time.Now()
	total := len(units)
	st := &runState{
		total:    total,
		outcomes: make([]entity.ExtractionOutcome, 0, total),
		progress: progress,
	}
	log := s.Logger.With("total", total, "concurrency", s.Concurrency)
	log.Info("pipeline.schedule.start")

	for lo, wave := 0, 0; lo < total; lo, wave = lo+s.Concurrency, wave+1 {
		hi := min(lo+s.Concurrency, total)

		if err := ctx.Err(); err != nil {
			log.Warn("pipeline.schedule.cancelled", "wave", wave, "remaining", total-lo, "error", err)
			for _, u := range units[lo:] {
				st.complete(cancelledOutcome(u), u.Name)
			}
			break
		}

		waveStart := time.Now()
		var g errgroup.Group
		for _, u := range units[lo:hi] {
			g.Go(func() error {
				out := s.Extractor.Extract(ctx, u)
				out.Seq = u.Seq
				st.complete(out, u.Name)
				return nil
			})
		}
		_ = g.Wait()

		log.Info("pipeline.wave.done",
			"wave", wave,
			"size", hi-lo,
			"elapsed_ms", time.Since(waveStart).Milliseconds(),
		)
	}

	if progress != nil {
		progress(entity.ProgressSnapshot{Processed: total, Total: total, Current: constants.ProgressDone, Done: true})
	}

	out := ReorderOutcomes(st.outcomes)
	log.Info("pipeline.schedule.done", "elapsed_ms", time.Since(start).Milliseconds())
	return out
}

// ReorderOutcomes stable-sorts outcomes by Seq; negative (unknown) Seq sorts last.
func ReorderOutcomes(outcomes []entity.ExtractionOutcome) []entity.ExtractionOutcome {
	key := func(o entity.ExtractionOutcome) int {
		if o.Seq < 0 {
			return math.MaxInt
		}
		return o.Seq
	}
	sort.SliceStable(outcomes, func(i, j int) bool {
		return key(outcomes[i]) < key(outcomes[j])
	})
	return outcomes
}

func cancelledOutcome(u entity.DocumentUnit) entity.ExtractionOutcome {
	return entity.ExtractionOutcome{
		Seq:           u.Seq,
		SourceName:    u.Title(),
		Checksum:      u.Checksum,
		FailureReason: constants.ReasonCancelled,
	}
}
