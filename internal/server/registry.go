package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
	"github.com/joseph-ayodele/kk-extractor/internal/pipeline"
)

// runState is the in-memory view of one submitted batch.
type runState struct {
	ID        uuid.UUID
	Status    constants.RunStatus
	Progress  entity.ProgressSnapshot
	Result    *pipeline.Result
	Error     string
	CreatedAt time.Time

	subs map[chan entity.ProgressSnapshot]struct{}
}

func (r *runState) snapshot() runState {
	cp := *r
	cp.subs = nil
	return cp
}

// Registry tracks live runs and keeps finished ones around for retention.
type Registry struct {
	mu       sync.Mutex
	live     map[uuid.UUID]*runState
	finished *cache.Cache
}

func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = time.Hour
	}
	return &Registry{
		live:     map[uuid.UUID]*runState{},
		finished: cache.New(retention, retention/2),
	}
}

// Create registers a queued run.
func (r *Registry) Create(id uuid.UUID, inputs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[id] = &runState{
		ID:        id,
		Status:    constants.RunStatusQueued,
		Progress:  entity.ProgressSnapshot{Total: inputs, Current: constants.ProgressPreparing},
		CreatedAt: time.Now().UTC(),
		subs:      map[chan entity.ProgressSnapshot]struct{}{},
	}
}

func (r *Registry) SetRunning(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.live[id]; ok {
		st.Status = constants.RunStatusRunning
	}
}

// Publish records snap as the latest progress and forwards it to subscribers.
// Slow subscribers only ever see the most recent snapshot.
func (r *Registry) Publish(id uuid.UUID, snap entity.ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.live[id]
	if !ok {
		return
	}
	st.Progress = snap
	for ch := range st.subs {
		offerLatest(ch, snap)
	}
}

func offerLatest(ch chan entity.ProgressSnapshot, snap entity.ProgressSnapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// Finish moves a run to the finished set and closes its subscriber channels.
func (r *Registry) Finish(id uuid.UUID, status constants.RunStatus, res *pipeline.Result, runErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.live[id]
	if !ok {
		return
	}
	delete(r.live, id)

	st.Status = status
	st.Result = res
	if runErr != nil {
		st.Error = runErr.Error()
	}
	if !st.Progress.Done {
		st.Progress = entity.ProgressSnapshot{
			Processed: st.Progress.Processed,
			Total:     st.Progress.Total,
			Current:   constants.ProgressDone,
			Done:      true,
		}
	}
	for ch := range st.subs {
		offerLatest(ch, st.Progress)
		close(ch)
	}
	st.subs = nil
	r.finished.SetDefault(id.String(), st)
}

// Get returns a copy of the run state.
func (r *Registry) Get(id uuid.UUID) (runState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.live[id]; ok {
		return st.snapshot(), true
	}
	if v, ok := r.finished.Get(id.String()); ok {
		return v.(*runState).snapshot(), true
	}
	return runState{}, false
}

// Subscribe returns a channel that yields the current progress and then every
// later update. The channel is closed when the run finishes. For a finished
// run it yields the final snapshot and is already closed.
func (r *Registry) Subscribe(id uuid.UUID) (<-chan entity.ProgressSnapshot, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan entity.ProgressSnapshot, 1)
	if st, ok := r.live[id]; ok {
		ch <- st.Progress
		st.subs[ch] = struct{}{}
		unsubscribe := func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if st.subs == nil {
				return
			}
			if _, ok := st.subs[ch]; ok {
				delete(st.subs, ch)
				close(ch)
			}
		}
		return ch, unsubscribe, true
	}
	if v, ok := r.finished.Get(id.String()); ok {
		ch <- v.(*runState).Progress
		close(ch)
		return ch, func() {}, true
	}
	return nil, func() {}, false
}
