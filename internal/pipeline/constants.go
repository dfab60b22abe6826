package pipeline

// Run status labels for observability.LastRunTimestamp.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Stage names used in errors and the run summary.
const (
	stageFetch    = "fetch"
	stageClassify = "classify"
	stageGenerate = "generate"
)

const (
	// topTopicsLimit is how many topics the run summary lists.
	topTopicsLimit = 5

	LogFieldRunID = "run_id"
	LogFieldStage = "stage"
)
