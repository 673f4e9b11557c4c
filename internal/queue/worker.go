package queue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// ErrQueueFull is returned when the job buffer has no free slot
var ErrQueueFull = errors.New("job queue is full")

// ErrStopped is returned when enqueueing after Stop
var ErrStopped = errors.New("worker pool stopped")

// Runner processes one uploaded object. onSubmitted receives the engine's
// job name once the transcription job has been accepted.
type Runner interface {
	RunJob(ctx context.Context, src types.SourceRef, onSubmitted func(jobName string)) types.Response
}

// WorkerPool manages a pool of workers processing extraction jobs
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	runner      Runner
	log         *logger.Logger

	mu      sync.RWMutex
	jobs    map[string]*Job
	stopped bool

	wg sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount, queueSize int, runner Runner, log *logger.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, queueSize),
		workerCount: workerCount,
		runner:      runner,
		log:         log.With("component", "worker_pool"),
		jobs:        make(map[string]*Job),
	}
}

// Start initializes all workers. Jobs run under ctx.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.Info("starting worker pool", "workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// EnqueueJob adds a job to the queue without blocking
func (wp *WorkerPool) EnqueueJob(job *Job) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return ErrStopped
	}

	job.Status = types.StatusQueued
	job.CreatedAt = time.Now()
	select {
	case wp.jobQueue <- job:
	default:
		return ErrQueueFull
	}
	wp.jobs[job.ID] = job
	wp.log.Info("job enqueued", "job_id", job.ID, "source", job.SourceType, "bucket", job.Source.Bucket, "key", job.Source.Key)
	return nil
}

// Lookup returns a snapshot of a job
func (wp *WorkerPool) Lookup(id string) (Job, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	job, ok := wp.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Stop stops accepting jobs and waits for queued ones to drain
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.log.Info("worker pool stopped")
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log := wp.log.With("worker", id)
	log.Debug("worker started")

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic processing job", "job_id", job.ID, "panic", r, "stack", string(debug.Stack()))
					wp.finish(job, types.Response{
						StatusCode: http.StatusInternalServerError,
						Body:       fmt.Sprintf("worker panic: %v", r),
					})
				}
			}()

			wp.processJob(ctx, log, job)
		}()
	}
}

func (wp *WorkerPool) processJob(ctx context.Context, log *logger.Logger, job *Job) {
	if err := ctx.Err(); err != nil {
		log.Warn("job cancelled before start", "job_id", job.ID, "error", err)
		wp.finish(job, types.Response{
			StatusCode: http.StatusServiceUnavailable,
			Body:       fmt.Sprintf("job cancelled before start: %v", err),
		})
		return
	}

	log.Info("processing job", "job_id", job.ID)
	wp.setStatus(job, types.StatusProcessing)

	resp := wp.runner.RunJob(ctx, job.Source, func(jobName string) {
		wp.mu.Lock()
		defer wp.mu.Unlock()
		job.JobName = jobName
	})
	wp.finish(job, resp)
	log.Info("job finished", "job_id", job.ID, "status_code", resp.StatusCode)
}

func (wp *WorkerPool) setStatus(job *Job, status types.JobStatus) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	job.Status = status
}

func (wp *WorkerPool) finish(job *Job, resp types.Response) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	now := time.Now()
	job.Response = &resp
	job.FinishedAt = &now
	if resp.Succeeded() {
		job.Status = types.StatusCompleted
	} else {
		job.Status = types.StatusFailed
	}
}
