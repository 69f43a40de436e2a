package pipeline

import "github.com/joseph-ayodele/kk-extractor/internal/entity"

// Summary partitions an ordered outcome list. Outcomes with no records and no
// failure land in neither list and are only counted in Empty.
type Summary struct {
	All        []entity.ExtractionOutcome `json:"-"`
	Successful []entity.ExtractionOutcome `json:"successful"`
	Failed     []entity.ExtractionOutcome `json:"failed"`
	Empty      int                        `json:"empty"`
}

// Aggregate classifies outcomes, preserving their relative order.
func Aggregate(outcomes []entity.ExtractionOutcome) Summary {
	s := Summary{
		All:        outcomes,
		Successful: []entity.ExtractionOutcome{},
		Failed:     []entity.ExtractionOutcome{},
	}
	for _, o := range outcomes {
		switch {
		case o.Failed():
			s.Failed = append(s.Failed, o)
		case len(o.Records) > 0:
			s.Successful = append(s.Successful, o)
		default:
			s.Empty++
		}
	}
	return s
}
