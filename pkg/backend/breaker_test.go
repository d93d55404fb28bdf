package backend

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/japaniel/wordtrans/pkg/translate"
)

type funcBackend struct {
	calls int32
	fn    func(word string) (string, error)
}

func (f *funcBackend) TranslateWord(ctx context.Context, sourceLang, targetLang, word string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(word)
}

func TestBreakerPassesThrough(t *testing.T) {
	next := &funcBackend{fn: func(word string) (string, error) { return word + "!", nil }}
	b := NewBreaker(next, BreakerSettings{MaxFailures: 2, OpenTimeout: time.Minute})

	out, err := b.TranslateWord(context.Background(), "en", "ru", "hi")
	if err != nil || out != "hi!" {
		t.Fatalf("got %q, %v", out, err)
	}
	if b.State() != "closed" {
		t.Fatalf("expected closed breaker, got %s", b.State())
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &funcBackend{fn: func(word string) (string, error) {
		return "", &translate.APIError{StatusCode: 503, Status: "503 Service Unavailable"}
	}}
	b := NewBreaker(next, BreakerSettings{MaxFailures: 3, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		if _, err := b.TranslateWord(context.Background(), "en", "ru", "w"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if b.State() != "open" {
		t.Fatalf("expected open breaker, got %s", b.State())
	}

	_, err := b.TranslateWord(context.Background(), "en", "ru", "w")
	if !errors.Is(err, translate.ErrAPIRequestFailed) {
		t.Fatalf("expected open breaker to report ErrAPIRequestFailed, got %v", err)
	}
	if got := atomic.LoadInt32(&next.calls); got != 3 {
		t.Fatalf("open breaker must not call the backend, got %d calls", got)
	}
}

func TestBreakerIgnoresNonTransportErrors(t *testing.T) {
	next := &funcBackend{fn: func(word string) (string, error) {
		return "", fmt.Errorf("%w: empty", translate.ErrMalformedResponse)
	}}
	b := NewBreaker(next, BreakerSettings{MaxFailures: 1, OpenTimeout: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := b.TranslateWord(context.Background(), "en", "ru", "w")
		if !errors.Is(err, translate.ErrMalformedResponse) {
			t.Fatalf("expected the backend error unchanged, got %v", err)
		}
	}
	if b.State() != "closed" {
		t.Fatalf("malformed responses must not open the breaker, state %s", b.State())
	}
}
