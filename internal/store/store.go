package store

import (
	"context"

	"github.com/vidscribe/api/internal/model"
)

// JobStore is the single source of truth for job state. Every mutating call
// persists the whole collection before it returns.
type JobStore interface {
	Create(ctx context.Context, job model.Job) error
	Get(ctx context.Context, id string) (model.Job, error)
	Update(ctx context.Context, id string, mutate func(*model.Job) error) (model.Job, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Job, error)
}
