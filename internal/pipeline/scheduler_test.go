package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

type extractorFunc func(ctx context.Context, u entity.DocumentUnit) entity.ExtractionOutcome

func (f extractorFunc) Extract(ctx context.Context, u entity.DocumentUnit) entity.ExtractionOutcome {
	return f(ctx, u)
}

func makeUnits(n int) []entity.DocumentUnit {
	units := make([]entity.DocumentUnit, n)
	for i := range units {
		units[i] = entity.DocumentUnit{Seq: i, Name: fmt.Sprintf("doc-%02d.pdf", i)}
	}
	return units
}

type progressLog struct {
	mu    sync.Mutex
	snaps []entity.ProgressSnapshot
}

func (p *progressLog) record(s entity.ProgressSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, s)
}

func TestScheduler_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("Success case - output follows input order regardless of completion order", func(t *testing.T) {
		units := makeUnits(11)
		ex := extractorFunc(func(_ context.Context, u entity.DocumentUnit) entity.ExtractionOutcome {
			// later units in a wave finish first
			time.Sleep(time.Duration(5-u.Seq%5) * 3 * time.Millisecond)
			return entity.ExtractionOutcome{SourceName: u.Title()}
		})
		out := NewScheduler(nil, ex, 5).Run(ctx, units, nil)

		require.Len(t, out, len(units))
		for i, o := range out {
			assert.Equal(t, i, o.Seq)
			assert.Equal(t, units[i].Title(), o.SourceName)
		}
	})

	t.Run("Success case - 12 units run in 3 waves of at most 5", func(t *testing.T) {
		var inFlight, maxInFlight, completed int32
		var violations atomic.Int32
		ex := extractorFunc(func(_ context.Context, u entity.DocumentUnit) entity.ExtractionOutcome {
			wave := int32(u.Seq / 5)
			// every unit of earlier waves must have settled before this one starts
			if atomic.LoadInt32(&completed) < wave*5 {
				violations.Add(1)
			}
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(25 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			atomic.AddInt32(&completed, 1)
			return entity.ExtractionOutcome{}
		})

		out := NewScheduler(nil, ex, 5).Run(ctx, makeUnits(12), nil)

		assert.Len(t, out, 12)
		assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(5))
		assert.Equal(t, int32(5), atomic.LoadInt32(&maxInFlight))
		assert.Zero(t, violations.Load())
	})

	t.Run("Success case - progress is per unit, monotonic and ends with done", func(t *testing.T) {
		units := makeUnits(7)
		p := &progressLog{}
		ex := extractorFunc(func(_ context.Context, u entity.DocumentUnit) entity.ExtractionOutcome {
			time.Sleep(time.Duration(u.Seq%3) * time.Millisecond)
			return entity.ExtractionOutcome{}
		})
		NewScheduler(nil, ex, 5).Run(ctx, units, p.record)

		require.Len(t, p.snaps, len(units)+1)
		seen := map[string]bool{}
		for i, s := range p.snaps[:len(units)] {
			assert.Equal(t, i+1, s.Processed)
			assert.Equal(t, 7, s.Total)
			assert.False(t, s.Done)
			seen[s.Current] = true
		}
		assert.Len(t, seen, len(units))

		last := p.snaps[len(p.snaps)-1]
		assert.Equal(t, entity.ProgressSnapshot{Processed: 7, Total: 7, Current: constants.ProgressDone, Done: true}, last)
	})

	t.Run("Success case - zero units emit done only", func(t *testing.T) {
		p := &progressLog{}
		out := NewScheduler(nil, extractorFunc(nil), 5).Run(ctx, nil, p.record)
		assert.Empty(t, out)
		require.Len(t, p.snaps, 1)
		assert.True(t, p.snaps[0].Done)
		assert.Equal(t, 0, p.snaps[0].Total)
	})

	t.Run("Error case - cancelled before start settles every unit as cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		var calls atomic.Int32
		ex := extractorFunc(func(context.Context, entity.DocumentUnit) entity.ExtractionOutcome {
			calls.Add(1)
			return entity.ExtractionOutcome{}
		})
		p := &progressLog{}
		out := NewScheduler(nil, ex, 5).Run(cctx, makeUnits(6), p.record)

		require.Len(t, out, 6)
		for i, o := range out {
			assert.Equal(t, i, o.Seq)
			assert.Equal(t, constants.ReasonCancelled, o.FailureReason)
		}
		assert.Zero(t, calls.Load())
		assert.Equal(t, 6, p.snaps[len(p.snaps)-1].Processed)
	})

	t.Run("Success case - zero concurrency falls back to default", func(t *testing.T) {
		assert.Equal(t, DefaultConcurrency, NewScheduler(nil, nil, 0).Concurrency)
	})
}

func TestReorderOutcomes(t *testing.T) {
	out := ReorderOutcomes([]entity.ExtractionOutcome{
		{Seq: 2, SourceName: "c"},
		{Seq: -1, SourceName: "unknown"},
		{Seq: 0, SourceName: "a"},
		{Seq: 1, SourceName: "b"},
	})
	names := []string{}
	for _, o := range out {
		names = append(names, o.SourceName)
	}
	assert.Equal(t, []string{"a", "b", "c", "unknown"}, names)
}
