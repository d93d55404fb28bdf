package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/japaniel/wordtrans/pkg/db"
)

// SegmentRecord is the ordered translation parts of one stored request.
type SegmentRecord struct {
	RequestID int64
	Segments  []string
}

// SegmentSaver is the part of *db.Store the BatchWriter writes through.
type SegmentSaver interface {
	WithTx(ctx context.Context, fn func(ex db.DBExecutor) error) error
	SaveSegments(ctx context.Context, ex db.DBExecutor, requestID int64, segments []string) error
}

// BatchWriter buffers segment records and writes them in batches, one
// transaction per batch, off the request path.
type BatchWriter struct {
	mu          sync.Mutex
	buf         []SegmentRecord
	cap         int
	flushTicker *time.Ticker
	closed      bool
	draining    bool
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	// delayed submissions waiting for their timer
	delayWG  sync.WaitGroup
	flushNow chan struct{}

	commitCh chan []SegmentRecord
	store    SegmentSaver
	OnError  func(error)
	// OnCommit is called with every record after its batch committed.
	OnCommit func(SegmentRecord)

	// first error from a background commit, reported by Close
	errMu   sync.Mutex
	lastErr error
}

// NewBatchWriter returns a writer that commits to store once bufferSize
// records are buffered or every flushInterval, whichever comes first.
// A zero flushInterval flushes by size and on Close only.
func NewBatchWriter(store SegmentSaver, bufferSize int, flushInterval time.Duration) *BatchWriter {
	if bufferSize <= 0 {
		bufferSize = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		buf:      make([]SegmentRecord, 0, bufferSize),
		cap:      bufferSize,
		ctx:      ctx,
		cancel:   cancel,
		flushNow: make(chan struct{}),
		commitCh: make(chan []SegmentRecord, 2),
		store:    store,
	}

	bw.wg.Add(1)
	go bw.committer()

	if flushInterval > 0 {
		bw.flushTicker = time.NewTicker(flushInterval)
		bw.wg.Add(1)
		go bw.loop()
	}
	return bw
}

// Submit enqueues a record.
func (bw *BatchWriter) Submit(rec SegmentRecord) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.buf = append(bw.buf, rec)
	if len(bw.buf) >= bw.cap {
		bw.flushLocked()
	}
	return nil
}

// SubmitAfter enqueues rec once delay has passed. Close submits pending
// delayed records immediately instead of waiting for their timers.
func (bw *BatchWriter) SubmitAfter(delay time.Duration, rec SegmentRecord) error {
	if delay <= 0 {
		return bw.Submit(rec)
	}
	bw.mu.Lock()
	if bw.closed || bw.draining {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.delayWG.Add(1)
	bw.mu.Unlock()

	go func() {
		defer bw.delayWG.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-bw.flushNow:
		}
		if err := bw.Submit(rec); err != nil {
			bw.recordErr(fmt.Errorf("batch writer: delayed record for request %d: %w", rec.RequestID, err))
		}
	}()
	return nil
}

// flushLocked hands the buffer to the committer. Caller holds bw.mu.
func (bw *BatchWriter) flushLocked() {
	if len(bw.buf) == 0 {
		return
	}
	batch := bw.buf
	bw.buf = make([]SegmentRecord, 0, bw.cap)

	// Blocking here while holding the lock propagates backpressure to Submit.
	select {
	case bw.commitCh <- batch:
	case <-bw.ctx.Done():
		bw.recordErr(fmt.Errorf("batch writer: dropping batch of %d records due to context cancellation", len(batch)))
	}
}

func (bw *BatchWriter) recordErr(err error) {
	bw.errMu.Lock()
	if bw.lastErr == nil {
		bw.lastErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

func (bw *BatchWriter) committer() {
	defer bw.wg.Done()
	for batch := range bw.commitCh {
		if err := bw.executeBatch(batch); err != nil {
			bw.recordErr(err)
			continue
		}
		if bw.OnCommit != nil {
			for _, rec := range batch {
				bw.OnCommit(rec)
			}
		}
	}
}

func (bw *BatchWriter) executeBatch(batch []SegmentRecord) error {
	// commits must outlive the writer's own context, which Close cancels
	ctx := context.Background()
	err := bw.store.WithTx(ctx, func(ex db.DBExecutor) error {
		for _, rec := range batch {
			if err := bw.store.SaveSegments(ctx, ex, rec.RequestID, rec.Segments); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit batch (%d records): %w", len(batch), err)
	}
	return nil
}

func (bw *BatchWriter) loop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.flushTicker.C:
			bw.mu.Lock()
			if len(bw.buf) > 0 {
				bw.flushLocked()
			}
			bw.mu.Unlock()
		}
	}
}

// Close rejects further records, releases delayed ones, commits everything
// still buffered and returns the first asynchronous error seen by the writer.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed || bw.draining {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.draining = true
	bw.mu.Unlock()

	close(bw.flushNow)
	bw.delayWG.Wait()

	bw.mu.Lock()
	bw.closed = true
	if bw.flushTicker != nil {
		bw.flushTicker.Stop()
	}
	// flush remaining
	if len(bw.buf) > 0 {
		bw.flushLocked()
	}
	bw.mu.Unlock()

	bw.cancel()
	close(bw.commitCh)
	bw.wg.Wait()

	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.lastErr
}

var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
