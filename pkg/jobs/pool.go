package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of work submitted to a pool run.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Enqueued time.Time
}

// Func processes a job and returns its value.
type Func func(context.Context, Job) (interface{}, error)

// Result is the outcome of one job. Err is set when the job failed or panicked.
type Result struct {
	Job      Job
	Value    interface{}
	Err      error
	Worker   int
	Duration time.Duration
}

// PanicError reports a job that panicked instead of returning.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}

// PoolConfig configures worker pool behaviour.
type PoolConfig struct {
	Workers int
	Logger  *zap.Logger
}

// Pool runs a batch of jobs on a fixed number of goroutines and streams
// their results in completion order. Each job's failure is isolated.
type Pool struct {
	name    string
	fn      Func
	workers int
	logger  *zap.Logger
}

// NewPool builds a pool executing fn.
func NewPool(name string, fn Func, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool{name: name, fn: fn, workers: cfg.Workers, logger: cfg.Logger}
}

// Workers returns the configured concurrency.
func (p *Pool) Workers() int {
	return p.workers
}

// Run submits jobs in order and returns a channel yielding exactly one result
// per job. The channel is closed once every job has finished.
func (p *Pool) Run(ctx context.Context, batch []Job) <-chan Result {
	results := make(chan Result, len(batch))
	queue := make(chan Job)

	workers := p.workers
	if workers > len(batch) {
		workers = len(batch)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go p.worker(ctx, i+1, queue, results, &wg)
	}

	go func() {
		for _, job := range batch {
			if job.Enqueued.IsZero() {
				job.Enqueued = time.Now().UTC()
			}
			queue <- job
		}
		close(queue)
		wg.Wait()
		close(results)
	}()

	p.logger.Sugar().Debugw("pool run started", "pool", p.name, "jobs", len(batch), "workers", workers)
	return results
}

func (p *Pool) worker(ctx context.Context, workerID int, queue <-chan Job, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range queue {
		results <- p.execute(ctx, workerID, job)
	}
}

func (p *Pool) execute(ctx context.Context, workerID int, job Job) (res Result) {
	start := time.Now()
	res = Result{Job: job, Worker: workerID}
	defer func() {
		if r := recover(); r != nil {
			res.Value = nil
			res.Err = &PanicError{Value: r, Stack: debug.Stack()}
			p.logger.Sugar().Errorw("job panicked", "pool", p.name, "job_id", job.ID, "type", job.Type, "panic", r)
		}
		res.Duration = time.Since(start)
	}()

	res.Value, res.Err = p.fn(ctx, job)
	if res.Err != nil {
		p.logger.Sugar().Warnw("job failed", "pool", p.name, "job_id", job.ID, "type", job.Type, "error", res.Err)
	}
	return res
}
