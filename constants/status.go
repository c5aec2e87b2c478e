package constants

// JobStatus is the canonical status for a stored extraction.
type JobStatus string

// Stable values (stored as-is in the database).
const (
	JobStatusRunning JobStatus = "RUNNING" // in progress
	JobStatusTextOK  JobStatus = "TEXT_OK" // acquisition completed
	JobStatusParsed  JobStatus = "PARSED"  // record assembled
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)
