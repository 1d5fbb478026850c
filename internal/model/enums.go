package model

// Job status
type JobStatus string

const (
	JobStatusQueued       JobStatus = "queued"
	JobStatusDownloading  JobStatus = "downloading"
	JobStatusProcessing   JobStatus = "processing"
	JobStatusSplitting    JobStatus = "splitting"
	JobStatusTranscribing JobStatus = "transcribing"
	JobStatusDone         JobStatus = "done"
	JobStatusError        JobStatus = "error"
)

var ValidJobStatuses = []JobStatus{
	JobStatusQueued, JobStatusDownloading, JobStatusProcessing, JobStatusSplitting,
	JobStatusTranscribing, JobStatusDone, JobStatusError,
}

// IsTerminal reports whether no further pipeline transitions can leave s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// IsInFlight reports whether a pipeline stage is actively working on the job.
func (s JobStatus) IsInFlight() bool {
	switch s {
	case JobStatusDownloading, JobStatusProcessing, JobStatusSplitting, JobStatusTranscribing:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is one of the known statuses.
func (s JobStatus) IsValid() bool {
	for _, v := range ValidJobStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Source kinds
type SourceKind string

const (
	SourceKindURL    SourceKind = "url"
	SourceKindUpload SourceKind = "upload"
)

// canTransition enforces the pipeline edges. error is reachable from every
// non-terminal state; done only from transcribing.
func canTransition(from, to JobStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == JobStatusError {
		return true
	}

	switch from {
	case JobStatusQueued:
		return to == JobStatusDownloading || to == JobStatusProcessing
	case JobStatusDownloading, JobStatusProcessing:
		return to == JobStatusSplitting
	case JobStatusSplitting:
		return to == JobStatusTranscribing
	case JobStatusTranscribing:
		return to == JobStatusDone
	default:
		return false
	}
}
