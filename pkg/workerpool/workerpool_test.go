package workerpool

import (
	"bytes"
	"context"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsJobs(t *testing.T) {
	p := New(Options{Workers: 4})
	p.Start()
	var ran int32
	jobs := 100
	for i := 0; i < jobs; i++ {
		err := p.Submit(func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := atomic.LoadInt32(&ran); int(got) != jobs {
		t.Fatalf("expected %d jobs executed, got %d", jobs, got)
	}
}

func TestJobsQueuedBeforeStartRun(t *testing.T) {
	p := New(Options{Workers: 2})
	var ran int32
	for i := 0; i < 5; i++ {
		if err := p.Submit(func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	if p.Pending() != 5 {
		t.Fatalf("expected 5 pending jobs, got %d", p.Pending())
	}
	p.Start()
	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := atomic.LoadInt32(&ran); got != 5 {
		t.Fatalf("expected 5 jobs executed, got %d", got)
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	p := New(Options{Workers: 1})
	p.Start()
	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := p.Submit(func(ctx context.Context) error { return nil }); err != ErrPoolClosed {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
	if !p.Closed() {
		t.Fatalf("expected pool to report closed")
	}
}

func TestSubmitQueueFull(t *testing.T) {
	p := New(Options{Workers: 1, QueueCapacity: 1})
	// workers not started, so the queue fills up
	if err := p.Submit(func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("setup submit failed: %v", err)
	}
	if err := p.Submit(func(ctx context.Context) error { return nil }); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSubmitCtxCancelled(t *testing.T) {
	p := New(Options{Workers: 1})
	defer p.Shutdown(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.SubmitCtx(ctx, func(ctx context.Context) error { return nil }); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.Pending() != 0 {
		t.Fatalf("expected nothing queued, got %d", p.Pending())
	}
}

func TestUnboundedQueueWarnsOperators(t *testing.T) {
	var buf bytes.Buffer
	p := New(Options{Workers: 1, QueueWarnDepth: 3, Logger: log.New(&buf, "", 0)})
	for i := 0; i < 10; i++ {
		if err := p.Submit(func(ctx context.Context) error { return nil }); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "unbounded task queue") != 1 {
		t.Fatalf("expected exactly one queue warning, got:\n%s", out)
	}
}

func TestShutdownForceCancelsAfterGrace(t *testing.T) {
	p := New(Options{Workers: 1})
	p.Start()

	started := make(chan struct{})
	// in-flight job that only stops on cancellation
	if err := p.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	// queued job behind it
	queuedErr := make(chan error, 1)
	if err := p.Submit(func(ctx context.Context) error {
		queuedErr <- ctx.Err()
		return nil
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-started

	begin := time.Now()
	if err := p.Shutdown(50 * time.Millisecond); err != nil {
		t.Fatalf("expected forced shutdown to succeed, got %v", err)
	}
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Fatalf("shutdown took too long: %v", elapsed)
	}

	select {
	case err := <-queuedErr:
		if err == nil {
			t.Fatalf("expected queued job to observe cancellation")
		}
	default:
		t.Fatalf("queued job was never invoked")
	}
}

func TestShutdownTimeout(t *testing.T) {
	var buf bytes.Buffer
	p := New(Options{Workers: 1, Logger: log.New(&buf, "", 0)})
	p.Start()
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	if err := p.Submit(func(ctx context.Context) error {
		close(started)
		<-release // ignores cancellation
		return nil
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-started

	if err := p.Shutdown(20 * time.Millisecond); err != ErrShutdownTimeout {
		t.Fatalf("expected ErrShutdownTimeout, got %v", err)
	}
	if !strings.Contains(buf.String(), "did not terminate") {
		t.Fatalf("expected shutdown timeout to be logged, got:\n%s", buf.String())
	}
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	p := New(Options{Workers: 1})
	p.Start()
	if err := p.Submit(func(ctx context.Context) error { panic("boom") }); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	done := make(chan struct{})
	if err := p.Submit(func(ctx context.Context) error {
		close(done)
		return nil
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker stopped after a panicking job")
	}
	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
