package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultSplitThreshold = 24 * 1024 * 1024
	DefaultSegmentSeconds = 600
)

// Splitter cuts audio artifacts that exceed the provider's upload limit into
// fixed-duration chunks without re-encoding.
type Splitter struct {
	binary         string
	runner         CommandRunner
	thresholdBytes int64
	segmentSeconds int
}

// NewSplitter creates an ffmpeg backed splitter. Zero values fall back to
// 24 MiB and 10 minutes.
func NewSplitter(binary string, runner CommandRunner, thresholdBytes int64, segmentSeconds int) *Splitter {
	if binary == "" {
		binary = "ffmpeg"
	}
	if thresholdBytes <= 0 {
		thresholdBytes = DefaultSplitThreshold
	}
	if segmentSeconds <= 0 {
		segmentSeconds = DefaultSegmentSeconds
	}
	return &Splitter{
		binary:         binary,
		runner:         runner,
		thresholdBytes: thresholdBytes,
		segmentSeconds: segmentSeconds,
	}
}

// ChunkPattern returns the glob matching every chunk written for a job.
func ChunkPattern(dir, jobID, ext string) string {
	return filepath.Join(dir, jobID+"_part*"+ext)
}

// Split returns the ordered chunk paths for audioPath. Files at or under the
// threshold are returned as the only chunk.
func (s *Splitter) Split(ctx context.Context, audioPath, dir, jobID string) ([]string, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access audio: %w", err)
	}

	if info.Size() <= s.thresholdBytes {
		return []string{audioPath}, nil
	}

	ext := filepath.Ext(audioPath)
	if ext == "" {
		ext = ".mp3"
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", audioPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(s.segmentSeconds),
		"-c", "copy",
		filepath.Join(dir, jobID+"_part%03d"+ext),
	}
	if _, err := s.runner.Run(ctx, s.binary, args...); err != nil {
		return nil, err
	}

	chunks, err := filepath.Glob(ChunkPattern(dir, jobID, ext))
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("segmenter produced no chunks for %s", filepath.Base(audioPath))
	}

	prefix := jobID + "_part"
	sort.Slice(chunks, func(i, j int) bool {
		return chunkIndex(chunks[i], prefix, ext) < chunkIndex(chunks[j], prefix, ext)
	})
	return chunks, nil
}

// chunkIndex parses the segment number so part1000 sorts after part999.
func chunkIndex(path, prefix, ext string) int {
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), prefix), ext)
	n, err := strconv.Atoi(name)
	if err != nil {
		return -1
	}
	return n
}
