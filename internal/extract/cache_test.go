package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

// MockDocumentExtractor is a mock implementation of the DocumentExtractor interface.
type MockDocumentExtractor struct {
	mock.Mock
}

func (m *MockDocumentExtractor) Extract(ctx context.Context, u entity.DocumentUnit) entity.ExtractionOutcome {
	args := m.Called(ctx, u)
	return args.Get(0).(entity.ExtractionOutcome)
}

func TestCachedExtractor(t *testing.T) {
	ctx := context.Background()
	rec := entity.ChildRecord{Nama: "SITI"}

	t.Run("Success case - second upload of same content is served from cache", func(t *testing.T) {
		next := new(MockDocumentExtractor)
		first := entity.DocumentUnit{Seq: 0, Name: "a.pdf", Checksum: "same"}
		next.On("Extract", ctx, first).Return(entity.ExtractionOutcome{Seq: 0, SourceName: "a", Records: []entity.ChildRecord{rec}}).Once()

		c := NewCachedExtractor(next, time.Minute, nil)
		c.Extract(ctx, first)
		out := c.Extract(ctx, entity.DocumentUnit{Seq: 4, Name: "copy.pdf", Checksum: "same"})

		assert.Equal(t, 4, out.Seq)
		assert.Equal(t, "copy", out.SourceName)
		assert.Equal(t, []entity.ChildRecord{rec}, out.Records)
		next.AssertNumberOfCalls(t, "Extract", 1)
	})

	t.Run("Error case - failures are not cached", func(t *testing.T) {
		next := new(MockDocumentExtractor)
		next.On("Extract", ctx, mock.Anything).Return(entity.ExtractionOutcome{FailureReason: constants.ReasonRateLimited}).Twice()

		c := NewCachedExtractor(next, time.Minute, nil)
		u := entity.DocumentUnit{Name: "a.pdf", Checksum: "k"}
		c.Extract(ctx, u)
		out := c.Extract(ctx, u)

		assert.Equal(t, constants.ReasonRateLimited, out.FailureReason)
		next.AssertNumberOfCalls(t, "Extract", 2)
	})

	t.Run("Success case - zero ttl disables caching", func(t *testing.T) {
		next := new(MockDocumentExtractor)
		assert.Same(t, next, NewCachedExtractor(next, 0, nil))
	})
}
