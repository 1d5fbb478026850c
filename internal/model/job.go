package model

import (
	"fmt"
	"time"
)

// Source describes where a job's audio comes from
type Source struct {
	Kind     SourceKind `json:"kind"`
	URL      string     `json:"url,omitempty"`
	Filename string     `json:"filename,omitempty"`
	Path     string     `json:"path,omitempty"` // upload location on disk
}

// Job represents one submission tracked through the transcription pipeline
type Job struct {
	ID         string    `json:"id"`
	Status     JobStatus `json:"status"`
	Source     Source    `json:"source"`
	Title      string    `json:"title"`
	Transcript string    `json:"transcript,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewURLJob creates a queued job for a remote media URL
func NewURLJob(id, url string, now time.Time) Job {
	return Job{
		ID:        id,
		Status:    JobStatusQueued,
		Source:    Source{Kind: SourceKindURL, URL: url},
		Title:     url,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewUploadJob creates a queued job for a file already written to path
func NewUploadJob(id, filename, path string, now time.Time) Job {
	return Job{
		ID:        id,
		Status:    JobStatusQueued,
		Source:    Source{Kind: SourceKindUpload, Filename: filename, Path: path},
		Title:     filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance moves the job to the next in-progress stage.
func (j *Job) Advance(to JobStatus) error {
	if to == JobStatusDone || to == JobStatusError {
		return fmt.Errorf("%w: %s must be set through Complete or Fail", ErrInvalidTransition, to)
	}
	return j.transition(to)
}

// Complete records the transcript and moves the job to done.
func (j *Job) Complete(transcript string) error {
	if transcript == "" {
		return fmt.Errorf("%w: empty transcript", ErrInvalidTransition)
	}
	if err := j.transition(JobStatusDone); err != nil {
		return err
	}
	j.Transcript = transcript
	j.Error = ""
	return nil
}

// Fail records a diagnostic and moves the job to error.
func (j *Job) Fail(reason string) error {
	if err := j.transition(JobStatusError); err != nil {
		return err
	}
	if reason == "" {
		reason = "unknown error"
	}
	j.Error = reason
	j.Transcript = ""
	return nil
}

func (j *Job) transition(to JobStatus) error {
	if !canTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Validate checks the field/status invariants of a stored job.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if !j.Status.IsValid() {
		return fmt.Errorf("job %s: unknown status %q", j.ID, j.Status)
	}
	if j.Status == JobStatusDone && j.Transcript == "" {
		return fmt.Errorf("job %s: done without transcript", j.ID)
	}
	if j.Status != JobStatusDone && j.Transcript != "" {
		return fmt.Errorf("job %s: transcript set while %s", j.ID, j.Status)
	}
	if j.Status != JobStatusError && j.Error != "" {
		return fmt.Errorf("job %s: error set while %s", j.ID, j.Status)
	}
	if j.Status == JobStatusError && j.Error == "" {
		return fmt.Errorf("job %s: error status without diagnostic", j.ID)
	}
	return nil
}

// Date returns the display date used by job listings.
func (j *Job) Date() string {
	return j.CreatedAt.Format("2006-01-02")
}
