package entity

// ExtractionOutcome is the result of extracting one DocumentUnit.
// A non-empty FailureReason marks the outcome failed regardless of Records.
type ExtractionOutcome struct {
	Seq           int           `json:"seq"`
	SourceName    string        `json:"source_name"`
	Checksum      string        `json:"checksum,omitempty"`
	Records       []ChildRecord `json:"records"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

// Failed reports whether the outcome carries a failure reason.
func (o ExtractionOutcome) Failed() bool {
	return o.FailureReason != ""
}

// Succeeded reports whether the outcome has records and no failure.
func (o ExtractionOutcome) Succeeded() bool {
	return o.FailureReason == "" && len(o.Records) > 0
}

// ProgressSnapshot is the latest batch progress, replaced on every emission.
type ProgressSnapshot struct {
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Current   string `json:"current"`
	Done      bool   `json:"done"`
}

// ProgressFunc receives progress snapshots in emission order.
type ProgressFunc func(ProgressSnapshot)
