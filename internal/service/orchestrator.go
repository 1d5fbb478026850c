package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/vidscribe/api/internal/media"
	"github.com/vidscribe/api/internal/model"
	"github.com/vidscribe/api/internal/store"
)

// Acquirer produces a local audio artifact for a job source.
type Acquirer interface {
	Acquire(ctx context.Context, jobID string, src model.Source) (media.Artifact, error)
}

// Splitter cuts an artifact into ordered chunks.
type Splitter interface {
	Split(ctx context.Context, audioPath, dir, jobID string) ([]string, error)
}

// Orchestrator drives one job through acquisition, splitting and
// transcription, recording every stage in the store before it starts.
type Orchestrator struct {
	store    store.JobStore
	acquirer Acquirer
	splitter Splitter
	driver   *TranscriptionDriver
	notifier Notifier
	dataDir  string
}

// NewOrchestrator creates a new orchestrator. notifier may be nil.
func NewOrchestrator(jobs store.JobStore, acquirer Acquirer, splitter Splitter, driver *TranscriptionDriver, notifier Notifier, dataDir string) *Orchestrator {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Orchestrator{
		store:    jobs,
		acquirer: acquirer,
		splitter: splitter,
		driver:   driver,
		notifier: notifier,
		dataDir:  dataDir,
	}
}

// Run executes the pipeline for one task. Stage failures are recorded on the
// job; only a store failure that prevents recording the outcome is returned.
func (o *Orchestrator) Run(ctx context.Context, task model.PipelineTask) error {
	jobID := task.JobID
	var artifacts []string

	job, err := o.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// deleted while queued; an upload may still be on disk
			o.cleanup(jobID, nil)
		}
		return o.stop(jobID, err)
	}
	if job.Status != model.JobStatusQueued {
		log.Printf("[Orchestrator] job %s is %s, skipping", jobID, job.Status)
		return nil
	}
	if err := ctx.Err(); err != nil {
		// shutting down; the job stays queued with its upload for the next boot
		log.Printf("[Orchestrator] job %s left queued: %v", jobID, err)
		return nil
	}
	defer func() { o.cleanup(jobID, artifacts) }()
	if job.Source.Path != "" {
		artifacts = append(artifacts, job.Source.Path)
	}

	log.Printf("[Orchestrator] starting job %s (%s)", jobID, job.Source.Kind)

	stage := model.JobStatusProcessing
	if job.Source.Kind == model.SourceKindURL {
		stage = model.JobStatusDownloading
	}
	if _, err := o.advance(ctx, jobID, stage, nil); err != nil {
		return o.stop(jobID, err)
	}

	art, err := o.acquirer.Acquire(ctx, jobID, job.Source)
	if art.Path != "" {
		artifacts = append(artifacts, art.Path)
	}
	if err != nil {
		return o.fail(ctx, jobID, model.NewPipelineError(stage, model.ErrAcquisitionFailed, err))
	}

	setTitle := func(j *model.Job) {
		if art.Title != "" {
			j.Title = art.Title
		}
	}
	if _, err := o.advance(ctx, jobID, model.JobStatusSplitting, setTitle); err != nil {
		return o.stop(jobID, err)
	}

	chunks, err := o.splitter.Split(ctx, art.Path, o.dataDir, jobID)
	artifacts = append(artifacts, chunks...)
	if err != nil {
		return o.fail(ctx, jobID, model.NewPipelineError(model.JobStatusSplitting, model.ErrSplitFailed, err))
	}
	log.Printf("[Orchestrator] job %s split into %d chunk(s)", jobID, len(chunks))

	if _, err := o.advance(ctx, jobID, model.JobStatusTranscribing, nil); err != nil {
		return o.stop(jobID, err)
	}

	transcript, err := o.driver.Transcribe(ctx, chunks)
	if err != nil {
		return o.fail(ctx, jobID, err)
	}

	done, err := o.store.Update(ctx, jobID, func(j *model.Job) error {
		return j.Complete(transcript)
	})
	if err != nil {
		return o.stop(jobID, err)
	}

	o.notifier.BroadcastComplete(jobID, done.Title, len(transcript))
	log.Printf("[Orchestrator] job %s done (%d chars)", jobID, len(transcript))
	return nil
}

// Recover reconciles jobs left behind by a previous process. Jobs caught in
// an in-flight stage are failed; jobs still queued are returned for resubmission.
func (o *Orchestrator) Recover(ctx context.Context) ([]model.Job, error) {
	jobs, err := o.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	var queued []model.Job
	for _, job := range jobs {
		switch {
		case job.Status == model.JobStatusQueued:
			queued = append(queued, job)
		case job.Status.IsInFlight():
			if _, err := o.store.Update(ctx, job.ID, func(j *model.Job) error {
				return j.Fail("interrupted by restart")
			}); err != nil {
				log.Printf("[Orchestrator] failed to recover job %s: %v", job.ID, err)
				continue
			}
			o.cleanup(job.ID, []string{job.Source.Path})
			log.Printf("[Orchestrator] job %s was %s at shutdown, marked as error", job.ID, job.Status)
		}
	}

	return queued, nil
}

func (o *Orchestrator) advance(ctx context.Context, jobID string, to model.JobStatus, mutate func(*model.Job)) (model.Job, error) {
	job, err := o.store.Update(ctx, jobID, func(j *model.Job) error {
		if mutate != nil {
			mutate(j)
		}
		return j.Advance(to)
	})
	if err != nil {
		return job, err
	}

	o.notifier.BroadcastStatus(jobID, to, job.Title)
	log.Printf("[Orchestrator] job %s -> %s", jobID, to)
	return job, nil
}

func (o *Orchestrator) fail(ctx context.Context, jobID string, cause error) error {
	msg := cause.Error()
	log.Printf("[Orchestrator] job %s failed: %s", jobID, msg)

	if _, err := o.store.Update(ctx, jobID, func(j *model.Job) error {
		return j.Fail(msg)
	}); err != nil {
		return o.stop(jobID, err)
	}

	o.notifier.BroadcastError(jobID, errorCode(cause), msg)
	return nil
}

// stop ends a run whose job can no longer be written. A job deleted or
// finished elsewhere is not an error for the caller.
func (o *Orchestrator) stop(jobID string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		log.Printf("[Orchestrator] job %s was deleted, stopping", jobID)
		return nil
	}
	if errors.Is(err, model.ErrInvalidTransition) {
		log.Printf("[Orchestrator] job %s changed state concurrently, stopping: %v", jobID, err)
		return nil
	}
	log.Printf("[Orchestrator] job %s: store failure: %v", jobID, err)
	return fmt.Errorf("job %s: %w", jobID, err)
}

// cleanup removes every file the job produced. Failures are only logged.
func (o *Orchestrator) cleanup(jobID string, paths []string) {
	seen := make(map[string]bool)
	remove := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("[Orchestrator] cleanup of %s failed: %v", p, err)
		}
	}

	for _, p := range paths {
		remove(p)
	}

	for _, pattern := range []string{jobID + "_part*", jobID + ".*"} {
		matches, err := filepath.Glob(filepath.Join(o.dataDir, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			remove(m)
		}
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, model.ErrAcquisitionFailed):
		return "ACQUISITION_FAILED"
	case errors.Is(err, model.ErrSplitFailed):
		return "SPLIT_FAILED"
	case errors.Is(err, model.ErrTranscriptionFailed):
		return "TRANSCRIPTION_FAILED"
	default:
		return "PIPELINE_FAILED"
	}
}
