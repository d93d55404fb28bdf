package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/japaniel/wordtrans/pkg/translate"
)

// Breaker stops calling a failing backend for a while after MaxFailures
// consecutive request failures. Malformed responses and cancelled calls do
// not count as failures.
type Breaker struct {
	next translate.Backend
	cb   *gobreaker.CircuitBreaker
}

type BreakerSettings struct {
	Name        string
	MaxFailures int
	OpenTimeout time.Duration
	Logger      *log.Logger
}

func NewBreaker(next translate.Backend, s BreakerSettings) *Breaker {
	maxFailures := uint32(5)
	if s.MaxFailures > 0 {
		maxFailures = uint32(s.MaxFailures)
	}
	name := s.Name
	if name == "" {
		name = "translate"
	}
	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: s.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !errors.Is(err, translate.ErrAPIRequestFailed)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				if s.Logger != nil {
					s.Logger.Printf("circuit breaker %s: %s -> %s", name, from, to)
				}
			},
		}),
	}
}

func (b *Breaker) TranslateWord(ctx context.Context, sourceLang, targetLang, word string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.TranslateWord(ctx, sourceLang, targetLang, word)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %w", translate.ErrAPIRequestFailed, err)
		}
		return "", err
	}
	return out.(string), nil
}

// State reports the current breaker state, e.g. "closed" or "open".
func (b *Breaker) State() string { return b.cb.State().String() }
