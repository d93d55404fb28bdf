package translate

import (
	"errors"
	"fmt"
)

var (
	// ErrAPIRequestFailed marks a backend call that returned a non-success
	// status or could not be completed.
	ErrAPIRequestFailed = errors.New("api request failed")
	// ErrMalformedResponse marks a backend payload without usable translation fragments.
	ErrMalformedResponse = errors.New("malformed translation response")
	// ErrTranslationFailed is the aggregate failure reported by Translate.
	ErrTranslationFailed = errors.New("translation failed")
	// ErrInterrupted is reported when the caller or a pool shutdown stops the translation.
	ErrInterrupted = errors.New("translation interrupted")
)

// APIError carries the diagnostic of a non-success backend response.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("error accessing the resource: %s", e.Status)
	}
	return fmt.Sprintf("error accessing the resource: %s: %s", e.Status, e.Body)
}

// Is makes errors.Is(err, ErrAPIRequestFailed) match any APIError.
func (e *APIError) Is(target error) bool { return target == ErrAPIRequestFailed }

// TranslationError is the failure of one word, surfaced once the join
// barrier has been passed.
type TranslationError struct {
	Index int
	Word  string
	Err   error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed for word %q (position %d): %v", e.Word, e.Index, e.Err)
}

// Unwrap exposes both the aggregate kind and the word-level cause.
func (e *TranslationError) Unwrap() []error { return []error{ErrTranslationFailed, e.Err} }
