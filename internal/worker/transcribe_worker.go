package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/vidscribe/api/internal/model"
	"github.com/vidscribe/api/internal/service"
)

// PipelineRunner executes one pipeline task to completion.
type PipelineRunner interface {
	Run(ctx context.Context, task model.PipelineTask) error
}

// TranscribeWorker processes transcription tasks delivered by asynq
type TranscribeWorker struct {
	runner PipelineRunner
}

// NewTranscribeWorker creates a new transcribe worker
func NewTranscribeWorker(runner PipelineRunner) *TranscribeWorker {
	return &TranscribeWorker{runner: runner}
}

// ProcessTask handles transcription task processing
func (w *TranscribeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	task, err := service.ParseTranscribeTask(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Starting transcribe job: %s", task.JobID)

	if err := w.runner.Run(ctx, task); err != nil {
		log.Printf("Transcribe job %s could not record its outcome: %v", task.JobID, err)
		return err
	}

	log.Printf("Transcribe job %s finished", task.JobID)
	return nil
}
