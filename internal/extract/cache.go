package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

// CachedExtractor remembers records of successfully extracted documents by
// content checksum, so re-uploading the same KK skips the model call.
// Failed outcomes are never cached.
type CachedExtractor struct {
	next   DocumentExtractor
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCachedExtractor wraps next; a non-positive ttl returns next unchanged.
func NewCachedExtractor(next DocumentExtractor, ttl time.Duration, logger *slog.Logger) DocumentExtractor {
	if ttl <= 0 {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedExtractor{
		next:   next,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (c *CachedExtractor) Extract(ctx context.Context, unit entity.DocumentUnit) entity.ExtractionOutcome {
	if unit.Checksum != "" {
		if v, ok := c.cache.Get(unit.Checksum); ok {
			if records, ok := v.([]entity.ChildRecord); ok {
				c.logger.Info("extract.cache.hit", "name", unit.Name, "seq", unit.Seq, "records", len(records))
				return entity.ExtractionOutcome{
					Seq:        unit.Seq,
					SourceName: unit.Title(),
					Checksum:   unit.Checksum,
					Records:    append([]entity.ChildRecord{}, records...),
				}
			}
		}
	}

	out := c.next.Extract(ctx, unit)
	if !out.Failed() && unit.Checksum != "" {
		c.cache.Set(unit.Checksum, append([]entity.ChildRecord{}, out.Records...), cache.DefaultExpiration)
	}
	return out
}
