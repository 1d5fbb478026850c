package media

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vidscribe/api/internal/model"
)

// ObjectFetcher reads objects from S3-compatible storage.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string, dst io.Writer) (int64, error)
}

// Artifact is the local audio produced by acquisition. Title is empty when
// nothing better than the submitted name was found.
type Artifact struct {
	Path  string
	Title string
}

// Acquirer turns a job source into a local audio file in the data dir.
type Acquirer struct {
	dataDir    string
	downloader *Downloader
	objects    ObjectFetcher
	feeds      *FeedResolver
	titles     *TitleResolver
}

// NewAcquirer creates a new acquirer writing into dataDir. feeds, titles and
// objects are optional; a nil value disables that kind of source.
func NewAcquirer(dataDir string, downloader *Downloader, feeds *FeedResolver, titles *TitleResolver, objects ObjectFetcher) *Acquirer {
	return &Acquirer{
		dataDir:    dataDir,
		downloader: downloader,
		objects:    objects,
		feeds:      feeds,
		titles:     titles,
	}
}

// Acquire produces the audio artifact for one job.
func (a *Acquirer) Acquire(ctx context.Context, jobID string, src model.Source) (Artifact, error) {
	switch src.Kind {
	case model.SourceKindUpload:
		if _, err := os.Stat(src.Path); err != nil {
			return Artifact{}, fmt.Errorf("uploaded file missing: %w", err)
		}
		return Artifact{Path: src.Path}, nil
	case model.SourceKindURL:
		return a.acquireURL(ctx, jobID, src.URL)
	default:
		return Artifact{}, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

func (a *Acquirer) acquireURL(ctx context.Context, jobID, raw string) (Artifact, error) {
	if strings.HasPrefix(raw, "s3://") {
		return a.fetchObject(ctx, jobID, raw)
	}

	var title string
	target := raw
	if a.feeds != nil && IsFeedURL(raw) {
		ep, err := a.feeds.Resolve(ctx, raw)
		if err != nil {
			return Artifact{}, err
		}
		log.Printf("[Acquirer] job %s: feed resolved to %s", jobID, ep.AudioURL)
		target = ep.AudioURL
		title = ep.Title
	} else if a.titles != nil {
		t, err := a.titles.Resolve(ctx, raw)
		if err != nil {
			log.Printf("[Acquirer] job %s: title lookup failed: %v", jobID, err)
		} else {
			title = t
		}
	}

	out, err := a.downloader.Download(ctx, target, a.dataDir, jobID)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: out, Title: title}, nil
}

func (a *Acquirer) fetchObject(ctx context.Context, jobID, raw string) (Artifact, error) {
	if a.objects == nil {
		return Artifact{}, fmt.Errorf("object storage is not configured")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Artifact{}, fmt.Errorf("invalid object URL: %w", err)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return Artifact{}, fmt.Errorf("object URL must be s3://bucket/key")
	}

	ext := path.Ext(key)
	if ext == "" {
		ext = ".mp3"
	}
	out := filepath.Join(a.dataDir, jobID+ext)

	f, err := os.Create(out)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create artifact: %w", err)
	}
	_, fetchErr := a.objects.Fetch(ctx, bucket, key, f)
	closeErr := f.Close()
	if fetchErr == nil {
		fetchErr = closeErr
	}
	if fetchErr != nil {
		_ = os.Remove(out)
		return Artifact{}, fetchErr
	}

	return Artifact{Path: out, Title: path.Base(key)}, nil
}
