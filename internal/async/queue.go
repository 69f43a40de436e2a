package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one submitted batch.
type Job struct {
	RunID       uuid.UUID
	Inputs      []entity.Input
	SubmittedAt time.Time
	RequestID   string
}

// Handler runs one job. ctx is cancelled on timeout or on Shutdown.
type Handler func(ctx context.Context, job Job)

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// RunQueue executes batch jobs on a fixed set of workers.
type RunQueue struct {
	handle  Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch     chan Job
	wg     sync.WaitGroup
	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

type Option func(*RunQueue)

func WithWorkers(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithRunTimeout bounds a whole batch. Zero means no limit.
func WithRunTimeout(d time.Duration) Option {
	return func(q *RunQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewRunQueue(handle Handler, logger *slog.Logger, opts ...Option) *RunQueue {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &RunQueue{
		handle:  handle,
		logger:  logger,
		workers: 2,
		ch:      make(chan Job, 64),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *RunQueue) run(workerID int, job Job) {
	ctx := q.ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	start := time.Now()
	q.logger.Info("async.run.start",
		"worker_id", workerID,
		"run_id", job.RunID,
		"inputs", len(job.Inputs),
		"queued_ms", start.Sub(job.SubmittedAt).Milliseconds(),
	)
	q.handle(ctx, job)
	q.logger.Info("async.run.done", "worker_id", workerID, "run_id", job.RunID, "elapsed_ms", time.Since(start).Milliseconds())
}

// Enqueue hands a job to the workers. It blocks while the queue is full
// unless ctx is done first.
func (q *RunQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("async.enqueue.rejected", "run_id", job.RunID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Info("async.enqueue.ok", "run_id", job.RunID)
		return nil
	default:
	}
	q.logger.Warn("async.enqueue.backpressure", "run_id", job.RunID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. If ctx
// ends first, in-flight runs are cancelled.
func (q *RunQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
		q.cancel()
		<-done
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
	q.cancel()
}
