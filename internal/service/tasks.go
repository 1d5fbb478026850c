package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vidscribe/api/internal/model"
)

const (
	TaskTypeTranscribe = "transcribe:process"
	QueueTranscribe    = "transcribe"

	transcribeTaskTimeout = 3 * time.Hour
)

// AsynqDispatcher enqueues pipeline runs on Redis for the worker server
type AsynqDispatcher struct {
	asynqClient *asynq.Client
}

func NewAsynqDispatcher(asynqClient *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{asynqClient: asynqClient}
}

// Dispatch enqueues a single-attempt transcription task
func (d *AsynqDispatcher) Dispatch(ctx context.Context, task model.PipelineTask) error {
	t, err := NewTranscribeTask(task)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	_, err = d.asynqClient.EnqueueContext(ctx, t,
		asynq.Queue(QueueTranscribe),
		asynq.TaskID(task.JobID),
		asynq.MaxRetry(0),
		asynq.Timeout(transcribeTaskTimeout),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// NewTranscribeTask builds the asynq task for one pipeline run
func NewTranscribeTask(task model.PipelineTask) (*asynq.Task, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTranscribe, data), nil
}

// ParseTranscribeTask decodes a task payload built by NewTranscribeTask
func ParseTranscribeTask(t *asynq.Task) (model.PipelineTask, error) {
	var task model.PipelineTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return task, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	if task.JobID == "" {
		return task, fmt.Errorf("task payload has no job id")
	}
	return task, nil
}
