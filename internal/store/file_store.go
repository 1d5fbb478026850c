package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vidscribe/api/internal/model"
)

// FileStore keeps jobs in memory and rewrites a JSON snapshot of the whole
// collection on every mutation.
type FileStore struct {
	mu   sync.Mutex
	path string
	jobs map[string]model.Job

	// swapped in tests to simulate a failing disk
	writeFile func(path string, data []byte) error
}

// NewFileStore loads the snapshot at path. A missing or unreadable snapshot
// starts an empty collection instead of failing.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	s := &FileStore{
		path:      path,
		jobs:      make(map[string]model.Job),
		writeFile: writeFileAtomic,
	}
	s.load()
	return s, nil
}

func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[JobStore] Failed to read %s, starting empty: %v", s.path, err)
		}
		return
	}

	var jobs map[string]model.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		log.Printf("[JobStore] Corrupt snapshot %s, starting empty: %v", s.path, err)
		return
	}

	for id, job := range jobs {
		if job.ID == "" {
			job.ID = id
		}
		if err := job.Validate(); err != nil {
			log.Printf("[JobStore] Skipping invalid job %s: %v", id, err)
			continue
		}
		s.jobs[id] = job
	}
	log.Printf("[JobStore] Loaded %d jobs from %s", len(s.jobs), s.path)
}

// Create inserts a new job and persists the snapshot
func (s *FileStore) Create(ctx context.Context, job model.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", model.ErrDuplicateID, job.ID)
	}

	s.jobs[job.ID] = job
	if err := s.persist(); err != nil {
		delete(s.jobs, job.ID)
		return err
	}
	return nil
}

// Get returns a copy of the job
func (s *FileStore) Get(ctx context.Context, id string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return model.Job{}, model.ErrNotFound
	}
	return job, nil
}

// Update applies mutate to a copy of the job, validates it and persists the
// snapshot. The in-memory record only changes if the write succeeds.
func (s *FileStore) Update(ctx context.Context, id string, mutate func(*model.Job) error) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.jobs[id]
	if !ok {
		return model.Job{}, model.ErrNotFound
	}

	next := prev
	if err := mutate(&next); err != nil {
		return prev, err
	}
	if next.ID != prev.ID {
		return prev, fmt.Errorf("job id is immutable: %s -> %s", prev.ID, next.ID)
	}
	if err := next.Validate(); err != nil {
		return prev, err
	}

	s.jobs[id] = next
	if err := s.persist(); err != nil {
		s.jobs[id] = prev
		return prev, err
	}
	return next, nil
}

// Delete removes the job and persists the snapshot
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.jobs[id]
	if !ok {
		return model.ErrNotFound
	}

	delete(s.jobs, id)
	if err := s.persist(); err != nil {
		s.jobs[id] = prev
		return err
	}
	return nil
}

// List returns all jobs ordered by creation time
func (s *FileStore) List(ctx context.Context) ([]model.Job, error) {
	s.mu.Lock()
	jobs := make([]model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs, nil
}

// persist must be called with mu held.
func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal jobs: %w", err)
	}
	if err := s.writeFile(s.path, data); err != nil {
		return fmt.Errorf("failed to persist jobs: %w", err)
	}
	return nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it over path, so readers only ever see a complete snapshot.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
