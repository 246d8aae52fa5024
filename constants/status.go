package constants

// OutcomeStatus is the terminal state of one document in a run.
type OutcomeStatus string

// Stable values (stored as-is in the run journal).
const (
	OutcomeSucceeded OutcomeStatus = "SUCCEEDED"
	OutcomeFailed    OutcomeStatus = "FAILED"
)

// Failure messages recorded on outcomes.
const (
	MsgNoData           = "could not extract information"
	MsgCopyFailedFmt    = "copy failed: %s"
	MsgReadFailedFmt    = "read failed: %s"
	MsgExtractFailedFmt = "text extraction failed: %s"
)
