package service

import (
	"context"
	"fmt"
	"log"

	"github.com/vidscribe/api/internal/client"
	"github.com/vidscribe/api/internal/config"
	"github.com/vidscribe/api/internal/model"
	"github.com/vidscribe/api/internal/store"
)

const (
	chatSystemPrompt = "You are a helpful assistant. Answer the user's question based ONLY on the provided video transcript. If the answer is not in the transcript, say so."
	truncationMarker = "...[TRUNCATED]"
)

// ChatCompleter is the chat-completion side of the language model provider.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, system, user string, opts client.ChatOptions) (string, error)
}

// ChatService answers questions about finished transcripts
type ChatService struct {
	store    store.JobStore
	llm      ChatCompleter
	maxChars int
	opts     client.ChatOptions
}

// NewChatService creates a new chat service
func NewChatService(jobs store.JobStore, llm ChatCompleter, cfg *config.ChatConfig) *ChatService {
	maxChars := cfg.MaxTranscriptChars
	if maxChars <= 0 {
		maxChars = 15000
	}
	return &ChatService{
		store:    jobs,
		llm:      llm,
		maxChars: maxChars,
		opts: client.ChatOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	}
}

// Ask answers question from the job's transcript. Provider failures are
// returned as an "Error: ..." answer rather than an error.
func (s *ChatService) Ask(ctx context.Context, jobID, question string) (string, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Status != model.JobStatusDone {
		return "", fmt.Errorf("%w: status is %s", model.ErrNotReady, job.Status)
	}

	user := fmt.Sprintf("Transcript: %s\n\nQuestion: %s", TruncateTranscript(job.Transcript, s.maxChars), question)

	answer, err := s.llm.ChatCompletion(ctx, chatSystemPrompt, user, s.opts)
	if err != nil {
		log.Printf("[Chat] job %s: provider error: %v", jobID, err)
		return "Error: " + err.Error(), nil
	}
	return answer, nil
}

// TruncateTranscript keeps the first max characters and appends a marker
// when the transcript is longer.
func TruncateTranscript(transcript string, max int) string {
	runes := []rune(transcript)
	if len(runes) <= max {
		return transcript
	}
	return string(runes[:max]) + truncationMarker
}
