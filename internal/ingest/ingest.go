package ingest

import (
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

// DirStats summarizes a filesystem collection pass.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// Expansion is the result of expanding a batch of inputs.
type Expansion struct {
	Units  []entity.DocumentUnit
	Errors []entity.InputError
}
