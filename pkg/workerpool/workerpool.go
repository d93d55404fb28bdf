// Package workerpool provides the process-wide bounded worker pool that
// executes translation tasks.
package workerpool

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultShutdownGrace is how long Shutdown waits before cancelling work.
const DefaultShutdownGrace = 15 * time.Second

// Job is a unit of work submitted to the Pool.
// ctx is the pool's lifetime context; it is cancelled when a shutdown
// runs past its grace period.
type Job func(ctx context.Context) error

// Options configures a Pool.
type Options struct {
	// Workers is the number of goroutines executing jobs. Values below 1 mean 1.
	Workers int
	// QueueCapacity is a hard ceiling on queued jobs. 0 means unbounded.
	QueueCapacity int
	// QueueWarnDepth logs a warning when an unbounded queue grows past it.
	// 0 disables the warning.
	QueueWarnDepth int
	// Logger receives operational messages. nil means no logging.
	Logger *log.Logger
}

// Pool runs jobs using a fixed number of goroutines.
// The pool is created once, shared by every caller and torn down with Shutdown.
type Pool struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []Job
	workers   int
	capacity  int
	warnDepth int
	warned    bool
	started   bool
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
	logger *log.Logger
}

// New creates a pool. Workers are not running until Start is called;
// jobs submitted before that wait in the queue.
func New(opts Options) *Pool {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	capacity := opts.QueueCapacity
	if capacity < 0 {
		capacity = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		workers:   workers,
		capacity:  capacity,
		warnDepth: opts.QueueWarnDepth,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		logger:    opts.Logger,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches the worker goroutines. Calling it more than once is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
}

func (p *Pool) startLocked() {
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			// closed and drained
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		if p.warned && len(p.queue) < p.warnDepth/2 {
			p.warned = false
		}
		p.mu.Unlock()

		p.run(job)
	}
}

// run executes a job. Errors belong to whoever submitted the job and are
// reported through its own channels.
func (p *Pool) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logf("job panicked: %v", r)
		}
	}()
	_ = job(p.ctx)
}

// Submit enqueues a job for processing.
// It returns ErrPoolClosed once shutdown has begun and ErrQueueFull when a
// bounded queue is at capacity.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	if p.capacity > 0 && len(p.queue) >= p.capacity {
		return ErrQueueFull
	}
	p.queue = append(p.queue, job)
	if p.capacity == 0 && p.warnDepth > 0 && !p.warned && len(p.queue) >= p.warnDepth {
		p.warned = true
		p.logf("warning: unbounded task queue reached %d pending jobs (%d workers)", len(p.queue), p.workers)
	}
	p.cond.Signal()
	return nil
}

// SubmitCtx is Submit that refuses work for an already finished ctx.
func (p *Pool) SubmitCtx(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Submit(job)
}

// Pending returns the number of queued jobs not yet picked up by a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.workers }

// Closed reports whether shutdown has begun.
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Shutdown stops accepting jobs and waits up to grace for queued and running
// jobs to finish. After grace the pool context is cancelled: running jobs
// observe cancellation and the remaining queued jobs are still invoked, with
// the cancelled context, so their submitters always receive an outcome.
// If the workers have not exited after a second grace period the failure is
// logged and ErrShutdownTimeout returned.
func (p *Pool) Shutdown(grace time.Duration) error {
	if grace <= 0 {
		grace = DefaultShutdownGrace
	}
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.cond.Broadcast()
	}
	p.startLocked()
	p.mu.Unlock()

	if p.wait(grace) {
		p.cancel()
		return nil
	}

	p.logf("graceful shutdown exceeded %v; cancelling remaining work (%d queued)", grace, p.Pending())
	p.cancel()
	if p.wait(grace) {
		return nil
	}
	p.logf("worker pool did not terminate within the allotted time")
	return ErrShutdownTimeout
}

func (p *Pool) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}

func (p *Pool) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf("workerpool: "+format, args...)
	}
}

var (
	// ErrPoolClosed is returned if a Submit is attempted after Shutdown.
	ErrPoolClosed = &PoolError{"worker pool closed"}
	// ErrQueueFull is returned when a bounded queue is at capacity.
	ErrQueueFull = &PoolError{"worker pool queue full"}
	// ErrShutdownTimeout is returned when workers outlive the forced shutdown.
	ErrShutdownTimeout = &PoolError{"worker pool did not terminate"}
)

// PoolError provides a simple typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }

// String implements fmt.Stringer for log output.
func (p *Pool) String() string {
	return fmt.Sprintf("workerpool(workers=%d, pending=%d)", p.workers, p.Pending())
}
