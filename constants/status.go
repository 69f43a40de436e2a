package constants

// RunStatus is the canonical status for rows in extract_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED" // the batch itself could not run
)

// Progress labels shown while a batch is in flight.
const (
	ProgressPreparing = "Preparing..."
	ProgressStarting  = "Starting extraction..."
	ProgressDone      = "Done"
)

// Human-readable failure reasons attached to outcomes.
const (
	ReasonRateLimited = "Rate limit reached. Please try again in a few moments."
	ReasonMalformed   = "Failed to parse the data returned by the AI. The document format may not be supported."
	ReasonGeneric     = "Failed to process the file. Make sure it is a valid KK document."
	ReasonCancelled   = "Processing was cancelled before this file was started."
)
