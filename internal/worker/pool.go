package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"github.com/vidscribe/api/internal/model"
)

var (
	ErrPoolClosed    = errors.New("worker pool is closed")
	ErrPoolQueueFull = errors.New("worker pool queue is full")
)

// Pool runs pipeline tasks in-process on a fixed number of goroutines. It is
// used when Redis is unavailable or the local worker mode is configured.
type Pool struct {
	runner      PipelineRunner
	workerCount int
	tasks       chan model.PipelineTask

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a pool with workerCount workers and a bounded queue
func NewPool(runner PipelineRunner, workerCount, queueSize int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		runner:      runner,
		workerCount: workerCount,
		tasks:       make(chan model.PipelineTask, queueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			for task := range p.tasks {
				p.process(workerID, task)
			}
		}(i)
	}
	log.Printf("[Worker Pool] started %d workers", p.workerCount)
}

// Dispatch queues a task without blocking the caller
func (p *Pool) Dispatch(ctx context.Context, task model.PipelineTask) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrPoolQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued work to drain. When ctx
// expires first, running pipelines are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

// process runs one task; a panic fails only that task.
func (p *Pool) process(workerID int, task model.PipelineTask) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Worker Pool] worker %d: panic in job %s: %v\n%s", workerID, task.JobID, r, debug.Stack())
		}
	}()

	if err := p.runner.Run(p.ctx, task); err != nil {
		log.Printf("[Worker Pool] worker %d: job %s: %v", workerID, task.JobID, err)
	}
}
