// Package service ties translation to persistence: it validates a request,
// records it, translates the text word by word and stores the translation in
// bounded parts.
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/wordtrans/pkg/db"
	"github.com/japaniel/wordtrans/pkg/segment"
)

const (
	DefaultMaxInputLen = 100
	DefaultSaveDelay   = 100 * time.Millisecond
)

// Translator is satisfied by *translate.Orchestrator.
type Translator interface {
	Translate(ctx context.Context, sourceLang, targetLang, text string) (string, error)
}

// RequestStore is satisfied by *db.Store.
type RequestStore interface {
	CreateRequest(ctx context.Context, r *db.TranslationRequest) (int64, error)
}

// ValidationError reports input that was rejected before any work was done.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

type Request struct {
	ClientIP   string
	SourceLang string
	TargetLang string
	Text       string
}

type Result struct {
	// RequestID is 0 when no store is configured.
	RequestID int64
	Text      string
	Segments  []string
}

// Service translates requests and stores them. A nil store skips
// persistence of the request; a nil writer skips persistence of the parts.
type Service struct {
	translator Translator
	store      RequestStore
	writer     *BatchWriter

	MaxInputLen   int
	SegmentMaxLen int
	SaveDelay     time.Duration
	Logger        *log.Logger
}

func New(translator Translator, store RequestStore, writer *BatchWriter) *Service {
	return &Service{
		translator:    translator,
		store:         store,
		writer:        writer,
		MaxInputLen:   DefaultMaxInputLen,
		SegmentMaxLen: segment.DefaultMaxLen,
		SaveDelay:     DefaultSaveDelay,
	}
}

// Validate checks language codes and text length.
func (s *Service) Validate(req Request) error {
	return ValidateRequest(req, s.MaxInputLen)
}

// ValidateRequest checks req; maxInputLen <= 0 disables the length check.
func ValidateRequest(req Request, maxInputLen int) error {
	if req.SourceLang == "" || req.TargetLang == "" || strings.TrimSpace(req.Text) == "" {
		return &ValidationError{"Invalid input parameters."}
	}
	if !isLangCode(req.SourceLang) {
		return &ValidationError{fmt.Sprintf("invalid source language code %q", req.SourceLang)}
	}
	if !isLangCode(req.TargetLang) {
		return &ValidationError{fmt.Sprintf("invalid target language code %q", req.TargetLang)}
	}
	if maxInputLen > 0 && utf8.RuneCountInString(req.Text) > maxInputLen {
		return &ValidationError{"Too long text"}
	}
	return nil
}

func isLangCode(code string) bool {
	if utf8.RuneCountInString(code) != 2 {
		return false
	}
	for _, r := range code {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// TranslateAndSave validates req, records it, translates its text and queues
// the translation parts for storage. The request record is written before
// translating, so failed translations are recorded too. Parts are handed to
// the writer after SaveDelay and never block the caller.
func (s *Service) TranslateAndSave(ctx context.Context, req Request) (*Result, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	res := &Result{}
	if s.store != nil {
		id, err := s.store.CreateRequest(ctx, &db.TranslationRequest{
			IPAddress:  req.ClientIP,
			InputLang:  req.SourceLang,
			InputText:  req.Text,
			OutputLang: req.TargetLang,
		})
		if err != nil {
			return nil, fmt.Errorf("save translation request: %w", err)
		}
		res.RequestID = id
	}

	out, err := s.translator.Translate(ctx, req.SourceLang, req.TargetLang, req.Text)
	if err != nil {
		s.logf("translation of request %d failed: %v", res.RequestID, err)
		return nil, err
	}
	res.Text = out
	if out == "" {
		return res, nil
	}

	if segment.Oversized(out, s.SegmentMaxLen) {
		s.logf("request %d: translation contains a word longer than %d characters, splitting it", res.RequestID, s.SegmentMaxLen)
	}
	res.Segments = segment.Split(out, s.SegmentMaxLen)

	if s.writer != nil && res.RequestID > 0 {
		rec := SegmentRecord{RequestID: res.RequestID, Segments: res.Segments}
		if err := s.writer.SubmitAfter(s.SaveDelay, rec); err != nil {
			// the translation itself succeeded; storage is best effort from here
			s.logf("request %d: could not queue %d segments: %v", res.RequestID, len(res.Segments), err)
		}
	}
	return res, nil
}

func (s *Service) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}
