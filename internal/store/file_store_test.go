package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vidscribe/api/internal/model"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "jobs.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s, path
}

func TestFileStoreCreateAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	job := model.NewURLJob("job-1", "https://example.com/v", time.Now().UTC())
	if err := s.Create(ctx, job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != model.JobStatusQueued {
		t.Fatalf("status = %s, want queued", got.Status)
	}
}

func TestFileStoreDuplicateID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	job := model.NewURLJob("job-1", "https://example.com/v", time.Now().UTC())
	if err := s.Create(ctx, job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Create(ctx, job); !errors.Is(err, model.ErrDuplicateID) {
		t.Fatalf("second Create() error = %v, want ErrDuplicateID", err)
	}
}

func TestFileStoreUnknownIDs(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	_, err := s.Update(ctx, "missing", func(j *model.Job) error { return nil })
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreDeleteTwice(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, model.NewURLJob("job-1", "https://example.com/v", time.Now().UTC())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Delete(ctx, "job-1"); err != nil {
		t.Fatalf("first Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "job-1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, "job-1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreUpdateAfterDeleteFailsFast(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, model.NewURLJob("job-1", "https://example.com/v", time.Now().UTC())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Delete(ctx, "job-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := s.Update(ctx, "job-1", func(j *model.Job) error {
		return j.Advance(model.JobStatusDownloading)
	})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}

	list, _ := s.List(ctx)
	if len(list) != 0 {
		t.Fatalf("List() = %d jobs, want deleted job to stay deleted", len(list))
	}
}

func TestFileStoreReloadsLastSnapshot(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, model.NewURLJob("job-1", "https://example.com/a", time.Now().UTC())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Create(ctx, model.NewUploadJob("job-2", "talk.mp4", "/tmp/job-2.mp4", time.Now().UTC())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for _, status := range []model.JobStatus{model.JobStatusDownloading, model.JobStatusSplitting, model.JobStatusTranscribing} {
		status := status
		if _, err := s.Update(ctx, "job-1", func(j *model.Job) error { return j.Advance(status) }); err != nil {
			t.Fatalf("Update(%s) error = %v", status, err)
		}
	}
	if _, err := s.Update(ctx, "job-1", func(j *model.Job) error { return j.Complete("a b c") }); err != nil {
		t.Fatalf("Update(done) error = %v", err)
	}
	if _, err := s.Update(ctx, "job-2", func(j *model.Job) error { return j.Fail("split failed: exit status 1") }); err != nil {
		t.Fatalf("Update(error) error = %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	got1, err := reopened.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get(job-1) error = %v", err)
	}
	if got1.Status != model.JobStatusDone || got1.Transcript != "a b c" {
		t.Fatalf("job-1 = %+v, want done with transcript", got1)
	}

	got2, err := reopened.Get(ctx, "job-2")
	if err != nil {
		t.Fatalf("Get(job-2) error = %v", err)
	}
	if got2.Status != model.JobStatusError || got2.Error != "split failed: exit status 1" {
		t.Fatalf("job-2 = %+v, want error with diagnostic", got2)
	}
	if got2.Source.Path != "/tmp/job-2.mp4" {
		t.Fatalf("job-2 source path = %q", got2.Source.Path)
	}
}

func TestFileStoreCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt snapshot: %v", err)
	}

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("List() = %d jobs, want 0", len(list))
	}

	if err := s.Create(context.Background(), model.NewURLJob("job-1", "https://example.com", time.Now().UTC())); err != nil {
		t.Fatalf("Create() after corrupt load error = %v", err)
	}
}

func TestFileStorePersistFailureRollsBack(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, model.NewURLJob("job-1", "https://example.com", time.Now().UTC())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	diskErr := errors.New("disk full")
	s.writeFile = func(string, []byte) error { return diskErr }

	_, err := s.Update(ctx, "job-1", func(j *model.Job) error { return j.Advance(model.JobStatusDownloading) })
	if !errors.Is(err, diskErr) {
		t.Fatalf("Update() error = %v, want disk error", err)
	}

	got, _ := s.Get(ctx, "job-1")
	if got.Status != model.JobStatusQueued {
		t.Fatalf("status = %s, want queued after failed persist", got.Status)
	}

	if err := s.Create(ctx, model.NewURLJob("job-2", "https://example.com", time.Now().UTC())); !errors.Is(err, diskErr) {
		t.Fatalf("Create() error = %v, want disk error", err)
	}
	if _, err := s.Get(ctx, "job-2"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get(job-2) error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreRejectsInvalidMutation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, model.NewURLJob("job-1", "https://example.com", time.Now().UTC())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := s.Update(ctx, "job-1", func(j *model.Job) error {
		j.Transcript = "partial"
		return nil
	})
	if err == nil {
		t.Fatal("expected invariant violation")
	}

	got, _ := s.Get(ctx, "job-1")
	if got.Transcript != "" {
		t.Fatalf("transcript = %q, want empty", got.Transcript)
	}
}

func TestFileStoreListIsStable(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		job := model.NewURLJob(id, "https://example.com/"+id, base.Add(time.Duration(i)*time.Second))
		if err := s.Create(ctx, job); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var ids []string
	for _, job := range list {
		ids = append(ids, job.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Fatalf("ids = %v, want creation order [c a b]", ids)
	}
}

func TestFileStoreConcurrentReadersSeeOneStatus(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, model.NewURLJob("job-1", "https://example.com", time.Now().UTC())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Update(ctx, "job-1", func(j *model.Job) error { return j.Advance(model.JobStatusDownloading) }); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	var wg sync.WaitGroup
	statuses := make(chan model.JobStatus, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := s.Get(ctx, "job-1")
			if err != nil {
				t.Errorf("Get() error = %v", err)
				return
			}
			statuses <- job.Status
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		if status != model.JobStatusDownloading {
			t.Fatalf("status = %s, want downloading", status)
		}
	}
}

func TestFileStoreConcurrentUpdatesAreSerialized(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			if err := s.Create(ctx, model.NewURLJob(id, "https://example.com", time.Now().UTC())); err != nil {
				t.Errorf("Create(%s) error = %v", id, err)
				return
			}
			if _, err := s.Update(ctx, id, func(j *model.Job) error { return j.Advance(model.JobStatusDownloading) }); err != nil {
				t.Errorf("Update(%s) error = %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	list, _ := reopened.List(ctx)
	if len(list) != n {
		t.Fatalf("reloaded %d jobs, want %d", len(list), n)
	}
	for _, job := range list {
		if job.Status != model.JobStatusDownloading {
			t.Fatalf("job %s status = %s, want downloading", job.ID, job.Status)
		}
	}
}
