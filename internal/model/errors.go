package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("job not found")
	ErrNotReady            = errors.New("job not finished")
	ErrDuplicateID         = errors.New("duplicate job id")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAcquisitionFailed   = errors.New("acquisition failed")
	ErrSplitFailed         = errors.New("split failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// PipelineError records which stage failed and why. It matches its Kind
// sentinel with errors.Is and still exposes the underlying cause.
type PipelineError struct {
	Stage JobStatus
	Kind  error
	Err   error
}

// NewPipelineError wraps err as a failure of the given kind during stage.
func NewPipelineError(stage JobStatus, kind, err error) *PipelineError {
	return &PipelineError{Stage: stage, Kind: kind, Err: err}
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
