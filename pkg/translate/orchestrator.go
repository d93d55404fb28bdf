// Package translate implements word-level parallel translation: a text is
// split into whitespace-delimited words, each word is translated by its own
// task on the shared worker pool, and the results are joined back in the
// original word order.
package translate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/japaniel/wordtrans/pkg/workerpool"
)

// DefaultTaskDelay is the pause each task takes before calling the backend.
// It keeps the request rate against the backend under its limit.
const DefaultTaskDelay = 400 * time.Millisecond

// Backend translates exactly one word per call.
// sourceLang and targetLang are two-letter language codes.
type Backend interface {
	TranslateWord(ctx context.Context, sourceLang, targetLang, word string) (string, error)
}

// Submitter is the part of the worker pool the Orchestrator depends on.
type Submitter interface {
	SubmitCtx(ctx context.Context, job workerpool.Job) error
}

// Task is the translation of one word.
type Task struct {
	Index      int
	Word       string
	SourceLang string
	TargetLang string
}

// Result is the outcome of a Task. Index restores the input order.
type Result struct {
	Index int
	Text  string
	Err   error
	// Cancelled is set when the task stopped because its context ended.
	Cancelled bool
}

// Orchestrator fans words out to the pool and joins the translations.
type Orchestrator struct {
	pool    Submitter
	backend Backend

	// TaskDelay is applied before every backend call. 0 disables it.
	TaskDelay time.Duration
	// Logger is used for per-word failures. nil means no logging.
	Logger *log.Logger
}

// New creates an Orchestrator that runs its tasks on pool.
func New(pool Submitter, backend Backend) *Orchestrator {
	return &Orchestrator{
		pool:      pool,
		backend:   backend,
		TaskDelay: DefaultTaskDelay,
	}
}

// Translate translates text word by word.
//
// Language codes are expected to be validated by the caller. Blank text
// returns "" without touching the pool or the backend. Every submitted task
// is waited for; if any failed, the failure of the first word (in input
// order) is returned as a *TranslationError and no partial text is produced.
// If ctx ends first, outstanding tasks are cancelled and an error matching
// ErrInterrupted is returned.
func (o *Orchestrator) Translate(ctx context.Context, sourceLang, targetLang, text string) (string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so that workers finishing after we stop listening never block.
	resultCh := make(chan Result, len(words))

	submitted := 0
	for i, w := range words {
		task := Task{Index: i, Word: w, SourceLang: sourceLang, TargetLang: targetLang}
		if err := o.pool.SubmitCtx(ctx, o.job(ctx, task, resultCh)); err != nil {
			if ctx.Err() != nil {
				return "", o.interrupted(ctx)
			}
			return "", fmt.Errorf("%w: submitting word %q: %w", ErrTranslationFailed, w, err)
		}
		submitted++
	}

	results := make([]Result, len(words))
	for received := 0; received < submitted; received++ {
		select {
		case res := <-resultCh:
			results[res.Index] = res
		case <-ctx.Done():
			return "", o.interrupted(ctx)
		}
	}

	out := make([]string, len(words))
	for _, res := range results {
		if res.Err != nil {
			if res.Cancelled {
				return "", fmt.Errorf("%w: word %q: %w", ErrInterrupted, words[res.Index], res.Err)
			}
			o.logf("translation of %d words failed at word %q: %v", len(words), words[res.Index], res.Err)
			return "", &TranslationError{Index: res.Index, Word: words[res.Index], Err: res.Err}
		}
		out[res.Index] = res.Text
	}
	return strings.Join(out, " "), nil
}

// job wraps a task for the pool. The task context ends when either the
// translation call or the pool is cancelled.
func (o *Orchestrator) job(ctx context.Context, task Task, resultCh chan<- Result) workerpool.Job {
	return func(poolCtx context.Context) error {
		taskCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if poolCtx.Err() != nil {
			// queued jobs run once after a forced shutdown; AfterFunc would
			// cancel too late to keep them off the backend
			cancel()
		}
		stop := context.AfterFunc(poolCtx, cancel)
		defer stop()

		res := Result{Index: task.Index}
		defer func() {
			if r := recover(); r != nil {
				res.Err = fmt.Errorf("panic translating word %q: %v", task.Word, r)
			}
			resultCh <- res
		}()

		res.Text, res.Err = o.runTask(taskCtx, task)
		if res.Err != nil && taskCtx.Err() != nil {
			res.Cancelled = true
		}
		return res.Err
	}
}

func (o *Orchestrator) runTask(ctx context.Context, task Task) (string, error) {
	if o.TaskDelay > 0 {
		timer := time.NewTimer(o.TaskDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	translated, err := o.backend.TranslateWord(ctx, task.SourceLang, task.TargetLang, task.Word)
	if err != nil {
		o.logf("error translating word %q: %v", task.Word, err)
		return "", err
	}
	return translated, nil
}

func (o *Orchestrator) interrupted(ctx context.Context) error {
	o.logf("translation was interrupted: %v", ctx.Err())
	return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}
