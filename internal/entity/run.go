package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run represents a persisted batch run for data transfer between layers.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Total      int        `json:"total"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Empty      int        `json:"empty"`
}

// RunOutcome is the stored view of one outcome of a run.
type RunOutcome struct {
	RunID         uuid.UUID `json:"run_id"`
	Seq           int       `json:"seq"`
	SourceName    string    `json:"source_name"`
	Checksum      string    `json:"checksum,omitempty"`
	RecordCount   int       `json:"record_count"`
	FailureReason string    `json:"failure_reason,omitempty"`
	RecordsJSON   string    `json:"-"`
}

// Extraction rebuilds the in-memory outcome from its stored form.
func (o RunOutcome) Extraction() (ExtractionOutcome, error) {
	out := ExtractionOutcome{
		Seq:           o.Seq,
		SourceName:    o.SourceName,
		Checksum:      o.Checksum,
		FailureReason: o.FailureReason,
		Records:       []ChildRecord{},
	}
	if o.RecordsJSON != "" {
		if err := json.Unmarshal([]byte(o.RecordsJSON), &out.Records); err != nil {
			return ExtractionOutcome{}, fmt.Errorf("decode records of %q: %w", o.SourceName, err)
		}
	}
	return out, nil
}
