package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

func TestAggregate(t *testing.T) {
	rec := entity.ChildRecord{Nama: "A"}
	outcomes := []entity.ExtractionOutcome{
		{Seq: 0, SourceName: "ok1", Records: []entity.ChildRecord{rec}},
		{Seq: 1, SourceName: "empty"},
		{Seq: 2, SourceName: "bad", FailureReason: "boom"},
		{Seq: 3, SourceName: "bad-with-records", Records: []entity.ChildRecord{rec}, FailureReason: "boom"},
		{Seq: 4, SourceName: "ok2", Records: []entity.ChildRecord{rec, rec}},
	}

	s := Aggregate(outcomes)

	assert.Len(t, s.All, 5)
	assert.Equal(t, 1, s.Empty)
	if assert.Len(t, s.Successful, 2) {
		assert.Equal(t, "ok1", s.Successful[0].SourceName)
		assert.Equal(t, "ok2", s.Successful[1].SourceName)
	}
	if assert.Len(t, s.Failed, 2) {
		assert.Equal(t, "bad", s.Failed[0].SourceName)
		assert.Equal(t, "bad-with-records", s.Failed[1].SourceName)
	}

	empty := Aggregate(nil)
	assert.NotNil(t, empty.Successful)
	assert.NotNil(t, empty.Failed)
}
