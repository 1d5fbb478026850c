package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Downloader fetches the best available audio of a remote video into dir,
// transcoded to mp3 and named after the job id.
type Downloader struct {
	binary string
	runner CommandRunner
}

// NewDownloader creates a yt-dlp backed downloader
func NewDownloader(binary string, runner CommandRunner) *Downloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Downloader{binary: binary, runner: runner}
}

// ArtifactPath is the deterministic location of a job's downloaded audio.
func ArtifactPath(dir, jobID string) string {
	return filepath.Join(dir, jobID+".mp3")
}

// Download runs yt-dlp and returns the path of the produced audio artifact.
func (d *Downloader) Download(ctx context.Context, url, dir, jobID string) (string, error) {
	args := []string{
		"--no-playlist",
		"--quiet",
		"--no-progress",
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"-o", filepath.Join(dir, jobID+".%(ext)s"),
		url,
	}

	if _, err := d.runner.Run(ctx, d.binary, args...); err != nil {
		return "", err
	}

	out := ArtifactPath(dir, jobID)
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("downloader produced no audio at %s: %w", out, err)
	}
	return out, nil
}
