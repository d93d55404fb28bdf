package service

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/japaniel/wordtrans/pkg/db"
	"github.com/japaniel/wordtrans/pkg/translate"
	"github.com/japaniel/wordtrans/pkg/workerpool"
)

type upperBackend struct{ calls int32 }

func (b *upperBackend) TranslateWord(ctx context.Context, sourceLang, targetLang, word string) (string, error) {
	atomic.AddInt32(&b.calls, 1)
	if word == "fail" {
		return "", &translate.APIError{StatusCode: 500, Status: "500 Internal Server Error"}
	}
	return strings.ToUpper(word), nil
}

func newTestOrchestrator(t *testing.T, backend translate.Backend) *translate.Orchestrator {
	t.Helper()
	pool := workerpool.New(workerpool.Options{Workers: 4})
	pool.Start()
	t.Cleanup(func() { pool.Shutdown(time.Second) })
	o := translate.New(pool, backend)
	o.TaskDelay = 0
	return o
}

func TestValidate(t *testing.T) {
	s := New(nil, nil, nil)
	tests := []struct {
		name string
		req  Request
		msg  string
	}{
		{"missing source", Request{TargetLang: "ru", Text: "hi"}, "Invalid input parameters."},
		{"missing target", Request{SourceLang: "en", Text: "hi"}, "Invalid input parameters."},
		{"blank text", Request{SourceLang: "en", TargetLang: "ru", Text: "  "}, "Invalid input parameters."},
		{"three letter code", Request{SourceLang: "eng", TargetLang: "ru", Text: "hi"}, "invalid source language code"},
		{"digit code", Request{SourceLang: "en", TargetLang: "r1", Text: "hi"}, "invalid target language code"},
		{"too long", Request{SourceLang: "en", TargetLang: "ru", Text: strings.Repeat("a", 101)}, "Too long text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !strings.Contains(ve.Msg, tt.msg) {
				t.Fatalf("message %q does not contain %q", ve.Msg, tt.msg)
			}
		})
	}

	// length is counted in characters, not bytes
	if err := s.Validate(Request{SourceLang: "ru", TargetLang: "en", Text: strings.Repeat("я", 100)}); err != nil {
		t.Fatalf("100 cyrillic characters must be accepted: %v", err)
	}
}

func TestTranslateAndSaveStoresRequestAndSegments(t *testing.T) {
	store := openTestStore(t)
	bw := NewBatchWriter(store, 10, 0)
	committed := make(chan SegmentRecord, 1)
	bw.OnCommit = func(rec SegmentRecord) { committed <- rec }

	s := New(newTestOrchestrator(t, &upperBackend{}), store, bw)
	s.SegmentMaxLen = 12
	s.SaveDelay = 10 * time.Millisecond

	ctx := context.Background()
	res, err := s.TranslateAndSave(ctx, Request{ClientIP: "192.0.2.1", SourceLang: "en", TargetLang: "xx", Text: "the quick brown fox jumps"})
	if err != nil {
		t.Fatalf("TranslateAndSave: %v", err)
	}
	if res.Text != "THE QUICK BROWN FOX JUMPS" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	want := []string{"THE QUICK", "BROWN FOX", "JUMPS"}
	if strings.Join(res.Segments, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected segments %q", res.Segments)
	}

	req, err := store.GetRequest(ctx, res.RequestID)
	if err != nil {
		t.Fatalf("request not stored: %v", err)
	}
	if req.IPAddress != "192.0.2.1" || req.InputText != "the quick brown fox jumps" {
		t.Fatalf("unexpected stored request %+v", req)
	}

	// parts arrive asynchronously; flush them by closing the writer
	if err := bw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	select {
	case rec := <-committed:
		if rec.RequestID != res.RequestID {
			t.Fatalf("unexpected committed record %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("segments were never committed")
	}
	parts, err := store.ListSegments(ctx, res.RequestID)
	if err != nil || len(parts) != 3 || parts[2].OutputText != "JUMPS" {
		t.Fatalf("unexpected stored parts %+v, %v", parts, err)
	}
}

func TestTranslateAndSaveRecordsFailedRequests(t *testing.T) {
	store := openTestStore(t)
	var logBuf bytes.Buffer
	s := New(newTestOrchestrator(t, &upperBackend{}), store, nil)
	s.Logger = log.New(&logBuf, "", 0)

	ctx := context.Background()
	_, err := s.TranslateAndSave(ctx, Request{SourceLang: "en", TargetLang: "ru", Text: "this will fail"})
	if !errors.Is(err, translate.ErrTranslationFailed) {
		t.Fatalf("expected ErrTranslationFailed, got %v", err)
	}
	recent, err := store.ListRecentRequests(ctx, 5)
	if err != nil || len(recent) != 1 {
		t.Fatalf("expected the request to be recorded, got %+v, %v", recent, err)
	}
	if !strings.Contains(logBuf.String(), "failed") {
		t.Fatalf("expected failure to be logged, got %q", logBuf.String())
	}
}

func TestTranslateAndSaveRejectsBeforeWork(t *testing.T) {
	backend := &upperBackend{}
	store := openTestStore(t)
	s := New(newTestOrchestrator(t, backend), store, nil)

	_, err := s.TranslateAndSave(context.Background(), Request{SourceLang: "en", TargetLang: "ru", Text: strings.Repeat("word ", 30)})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Msg != "Too long text" {
		t.Fatalf("expected Too long text, got %v", err)
	}
	if atomic.LoadInt32(&backend.calls) != 0 {
		t.Fatalf("backend must not be called for rejected input")
	}
	recent, _ := store.ListRecentRequests(context.Background(), 5)
	if len(recent) != 0 {
		t.Fatalf("rejected input must not be recorded, got %d rows", len(recent))
	}
}

func TestTranslateAndSaveWithoutStore(t *testing.T) {
	s := New(newTestOrchestrator(t, &upperBackend{}), nil, nil)
	res, err := s.TranslateAndSave(context.Background(), Request{SourceLang: "en", TargetLang: "de", Text: "hello"})
	if err != nil {
		t.Fatalf("TranslateAndSave: %v", err)
	}
	if res.RequestID != 0 || res.Text != "HELLO" || len(res.Segments) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestTranslateAndSaveStorageFailureDoesNotFailRequest(t *testing.T) {
	boom := errors.New("disk full")
	saver := &fakeSaver{fail: map[int64]error{1: boom}}
	bw := NewBatchWriter(saver, 1, 0)
	store := openTestStore(t)
	s := New(newTestOrchestrator(t, &upperBackend{}), store, bw)
	s.SaveDelay = 0

	res, err := s.TranslateAndSave(context.Background(), Request{SourceLang: "en", TargetLang: "de", Text: "hello"})
	if err != nil {
		t.Fatalf("TranslateAndSave: %v", err)
	}
	if res.RequestID != 1 {
		t.Fatalf("expected first request id, got %d", res.RequestID)
	}
	if err := bw.Close(); !errors.Is(err, boom) {
		t.Fatalf("expected storage failure from Close, got %v", err)
	}
}

var _ RequestStore = (*db.Store)(nil)
var _ SegmentSaver = (*db.Store)(nil)
