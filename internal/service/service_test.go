package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vidscribe/api/internal/media"
	"github.com/vidscribe/api/internal/model"
	"github.com/vidscribe/api/internal/store"
)

func newTestStore(t *testing.T) *store.FileStore {
	t.Helper()
	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "jobs.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// fakeTranscriber returns the file content as the transcript of a chunk.
type fakeTranscriber struct {
	mu    sync.Mutex
	calls []string
	errOn string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filename)
	if filename == f.errOn {
		return "", errors.New("groq API error (status 500)")
	}
	return string(audio), nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []model.JobStatus
	complete int
	errCodes []string
}

func (n *recordingNotifier) BroadcastStatus(jobID string, status model.JobStatus, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, status)
}

func (n *recordingNotifier) BroadcastComplete(jobID, title string, length int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.complete++
}

func (n *recordingNotifier) BroadcastError(jobID, code, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errCodes = append(n.errCodes, code)
}

// fakeAcquirer writes an artifact into dir and records the status the job
// had when acquisition started.
type fakeAcquirer struct {
	dir      string
	store    store.JobStore
	title    string
	err      error
	onStart  func(jobID string)
	observed model.JobStatus
}

func (a *fakeAcquirer) Acquire(ctx context.Context, jobID string, src model.Source) (media.Artifact, error) {
	if job, err := a.store.Get(ctx, jobID); err == nil {
		a.observed = job.Status
	}
	if a.onStart != nil {
		a.onStart(jobID)
	}
	if a.err != nil {
		return media.Artifact{}, a.err
	}
	if src.Kind == model.SourceKindUpload {
		return media.Artifact{Path: src.Path}, nil
	}
	path := filepath.Join(a.dir, jobID+".mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return media.Artifact{}, err
	}
	return media.Artifact{Path: path, Title: a.title}, nil
}

// fakeSplitter writes one chunk file per text, in order.
type fakeSplitter struct {
	texts []string
	err   error
}

func (s *fakeSplitter) Split(ctx context.Context, audioPath, dir, jobID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var chunks []string
	for i, text := range s.texts {
		p := filepath.Join(dir, jobID+"_part00"+string(rune('0'+i))+".mp3")
		if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
			return nil, err
		}
		chunks = append(chunks, p)
	}
	return chunks, nil
}

type fakeDispatcher struct {
	mu    sync.Mutex
	tasks []model.PipelineTask
	err   error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, task model.PipelineTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}

func createJob(t *testing.T, s store.JobStore, job model.Job) {
	t.Helper()
	if err := s.Create(context.Background(), job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

var testNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
