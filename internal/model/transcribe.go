package model

// ProcessRequest represents the request to transcribe a remote video
type ProcessRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ChatRequest represents a question about a finished transcript
type ChatRequest struct {
	JobID    string `json:"job_id" validate:"required"`
	Question string `json:"question" validate:"required"`
}

// JobCreatedResponse is returned when a job is accepted
type JobCreatedResponse struct {
	JobID string `json:"job_id"`
}

// JobStatusResponse represents the pollable state of a job
type JobStatusResponse struct {
	Status JobStatus `json:"status"`
	Error  *string   `json:"error"`
}

// JobResultResponse carries the finished transcript
type JobResultResponse struct {
	Transcript string `json:"transcript"`
}

// JobSummary is one row of the job listing
type JobSummary struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
	Title  string    `json:"title"`
	Date   string    `json:"date"`
}

// JobDeletedResponse confirms a deletion
type JobDeletedResponse struct {
	Status string `json:"status"`
}

// ChatResponse carries the provider's answer
type ChatResponse struct {
	Answer string `json:"answer"`
}

// PipelineTask is the unit of background work for one job
type PipelineTask struct {
	JobID  string `json:"jobId"`
	Source Source `json:"source"`
}
