package service

import "github.com/vidscribe/api/internal/model"

// Notifier pushes job progress to connected clients.
type Notifier interface {
	BroadcastStatus(jobID string, status model.JobStatus, title string)
	BroadcastComplete(jobID, title string, length int)
	BroadcastError(jobID, code, message string)
}

type nopNotifier struct{}

func (nopNotifier) BroadcastStatus(string, model.JobStatus, string) {}
func (nopNotifier) BroadcastComplete(string, string, int)          {}
func (nopNotifier) BroadcastError(string, string, string)          {}
