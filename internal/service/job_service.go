package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vidscribe/api/internal/model"
	"github.com/vidscribe/api/internal/store"
)

// Dispatcher hands a created job to whatever runs the pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, task model.PipelineTask) error
}

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// JobService handles job submission and queries
type JobService struct {
	store      store.JobStore
	dispatcher Dispatcher
	dataDir    string
	now        func() time.Time
	newID      func() string
}

// NewJobService creates a new job service
func NewJobService(jobs store.JobStore, dispatcher Dispatcher, dataDir string) *JobService {
	return &JobService{
		store:      jobs,
		dispatcher: dispatcher,
		dataDir:    dataDir,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
	}
}

// CreateURLJob records a queued job for a remote video and dispatches it
func (s *JobService) CreateURLJob(ctx context.Context, url string) (string, error) {
	job := model.NewURLJob(s.newID(), url, s.now())
	if err := s.store.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}
	if err := s.dispatch(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// CreateUploadJob stores an uploaded file as <dataDir>/<id><ext> via save,
// records a queued job and dispatches it
func (s *JobService) CreateUploadJob(ctx context.Context, filename string, save func(dst string) error) (string, error) {
	id := s.newID()
	filename = filepath.Base(filename)
	dst := filepath.Join(s.dataDir, id+uploadExt(filename))

	if err := save(dst); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}

	job := model.NewUploadJob(id, filename, dst, s.now())
	if err := s.store.Create(ctx, job); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to create job: %w", err)
	}
	if err := s.dispatch(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Status returns the pollable state of a job
func (s *JobService) Status(ctx context.Context, id string) (*model.JobStatusResponse, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &model.JobStatusResponse{Status: job.Status}
	if job.Error != "" {
		msg := job.Error
		resp.Error = &msg
	}
	return resp, nil
}

// Result returns the transcript of a finished job
func (s *JobService) Result(ctx context.Context, id string) (string, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != model.JobStatusDone {
		return "", fmt.Errorf("%w: status is %s", model.ErrNotReady, job.Status)
	}
	return job.Transcript, nil
}

// List returns every job in creation order
func (s *JobService) List(ctx context.Context) ([]model.JobSummary, error) {
	jobs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, model.JobSummary{
			ID:     job.ID,
			Status: job.Status,
			Title:  job.Title,
			Date:   job.Date(),
		})
	}
	return summaries, nil
}

// Delete removes a job record. A pipeline still working on it stops at its
// next store write.
func (s *JobService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Resubmit dispatches jobs that were still queued when the process stopped
func (s *JobService) Resubmit(ctx context.Context, jobs []model.Job) {
	for _, job := range jobs {
		if err := s.dispatch(ctx, job); err != nil {
			log.Printf("[JobService] failed to resubmit job %s: %v", job.ID, err)
			continue
		}
		log.Printf("[JobService] resubmitted queued job %s", job.ID)
	}
}

// dispatch hands the job to the dispatcher. A job that cannot be dispatched
// would stay queued forever, so it is failed instead.
func (s *JobService) dispatch(ctx context.Context, job model.Job) error {
	err := s.dispatcher.Dispatch(ctx, model.PipelineTask{JobID: job.ID, Source: job.Source})
	if err == nil {
		return nil
	}

	reason := fmt.Sprintf("failed to dispatch job: %v", err)
	if _, uerr := s.store.Update(ctx, job.ID, func(j *model.Job) error {
		return j.Fail(reason)
	}); uerr != nil {
		log.Printf("[JobService] failed to record dispatch failure for %s: %v", job.ID, uerr)
	}
	if job.Source.Path != "" {
		_ = os.Remove(job.Source.Path)
	}
	return fmt.Errorf("failed to dispatch job: %w", err)
}

func uploadExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !safeExt.MatchString(ext) {
		return ".mp4"
	}
	return ext
}
