// Package processing runs poster generation in a background worker pool.
// Goroutines + channels (core Go concurrency primitives) power the
// implementation.
package processing

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/MapPoster/internal/model"
	"github.com/dharsanguruparan/MapPoster/internal/storage"
)

// Job represents background generation work. Simple structs like this make it
// easy to extend later without changing channel type signatures.
type Job struct {
	TaskID  string
	Request model.GenerateRequest
}

// Handler processes one job to completion.
type Handler interface {
	Run(ctx context.Context, job Job)
}

// Processor consumes Jobs with a fixed number of workers. A task id is only
// ever enqueued once, so no two workers touch the same task.
type Processor struct {
	store   *storage.TaskStore
	handler Handler
	queue   chan Job
	workers int
	wg      sync.WaitGroup
	log     zerolog.Logger
}

// New builds a Processor. queueSize <= 0 ties the queue capacity to the
// worker count.
func New(store *storage.TaskStore, handler Handler, workers, queueSize int, log zerolog.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	return &Processor{
		store:   store,
		handler: handler,
		// make(chan T, N) creates a buffered channel that can hold N messages
		// without blocking producers, keeping submissions responsive.
		queue:   make(chan Job, queueSize),
		workers: workers,
		log:     log,
	}
}

// Start launches worker goroutines.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		// go keyword starts a new goroutine (lightweight thread managed by the
		// Go runtime). Each worker listens for jobs until the context closes.
		go p.worker(ctx)
	}
}

// Wait blocks until every worker has exited.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Submit queues a job for async processing.
func (p *Processor) Submit(job Job) error {
	select {
	case p.queue <- job:
		return nil
	default:
		// default branch activates when the channel buffer is full; we drop
		// the work but mark the task failed so the API reflects reality.
		p.log.Warn().Str("task_id", job.TaskID).Msg("processor queue full, dropping job")
		_ = p.store.Fail(job.TaskID, ErrQueueFull.Error())
		return ErrQueueFull
	}
}

func (p *Processor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// Exit when the context is cancelled (triggered by signal
			// handling in main.go).
			return
		case job := <-p.queue:
			p.process(ctx, job)
		}
	}
}

// process shields the pool from a panicking task.
func (p *Processor) process(ctx context.Context, job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Interface("panic", rec).Str("task_id", job.TaskID).Msg("task panicked")
			_ = p.store.Fail(job.TaskID, "internal error")
		}
	}()
	p.handler.Run(ctx, job)
}
