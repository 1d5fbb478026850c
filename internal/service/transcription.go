package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidscribe/api/internal/model"
)

// Transcriber converts one audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// TranscriptionDriver sends chunks to the speech-to-text provider one at a
// time and joins the results in chunk order.
type TranscriptionDriver struct {
	transcriber Transcriber
	readFile    func(string) ([]byte, error)
}

// NewTranscriptionDriver creates a new transcription driver
func NewTranscriptionDriver(transcriber Transcriber) *TranscriptionDriver {
	return &TranscriptionDriver{
		transcriber: transcriber,
		readFile:    os.ReadFile,
	}
}

// Transcribe returns the space-joined transcript of chunks. Any failing chunk
// fails the whole call and no partial text is returned.
func (d *TranscriptionDriver) Transcribe(ctx context.Context, chunks []string) (string, error) {
	if len(chunks) == 0 {
		return "", transcriptionError(fmt.Errorf("no chunks to transcribe"))
	}

	texts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", transcriptionError(err)
		}

		audio, err := d.readFile(chunk)
		if err != nil {
			return "", transcriptionError(fmt.Errorf("failed to read chunk %d/%d: %w", i+1, len(chunks), err))
		}

		text, err := d.transcriber.Transcribe(ctx, filepath.Base(chunk), audio)
		if err != nil {
			return "", transcriptionError(fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err))
		}

		log.Printf("[Transcription] chunk %d/%d done (%d chars)", i+1, len(chunks), len(text))
		// silent chunks contribute nothing, not an extra separator
		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
	}

	transcript := strings.Join(texts, " ")
	if transcript == "" {
		return "", transcriptionError(fmt.Errorf("provider returned no speech"))
	}
	return transcript, nil
}

func transcriptionError(err error) error {
	return model.NewPipelineError(model.JobStatusTranscribing, model.ErrTranscriptionFailed, err)
}
