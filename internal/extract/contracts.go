package extract

import (
	"context"

	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

// DocumentExtractor turns one unit into exactly one outcome. Failures are
// reported through ExtractionOutcome.FailureReason, never as an error.
type DocumentExtractor interface {
	Extract(ctx context.Context, unit entity.DocumentUnit) entity.ExtractionOutcome
}

// Preflighter is a cheap local check run before a document is sent out.
type Preflighter interface {
	Check(content []byte) (pages int, err error)
}
