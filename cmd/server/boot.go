package main

import (
	"context"
	"log"

	"github.com/vidscribe/api/internal/model"
)

type jobRecoverer interface {
	Recover(ctx context.Context) ([]model.Job, error)
}

// recoverThenStart reconciles jobs left by the previous process and only then
// starts the workers, so no task can move a job before the snapshot is taken.
// Workers are started even when recovery fails.
func recoverThenStart(ctx context.Context, r jobRecoverer, startWorkers func()) []model.Job {
	queued, err := r.Recover(ctx)
	if err != nil {
		log.Printf("Warning: job recovery failed: %v", err)
	}
	startWorkers()
	return queued
}
