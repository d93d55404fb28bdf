package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/japaniel/wordtrans/pkg/translate"
)

func newCloudServer(t *testing.T, h http.HandlerFunc) *Cloud {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewCloud("test-key")
	c.URL = srv.URL
	return c
}

func TestCloudTranslateWord(t *testing.T) {
	var got cloudRequest
	var auth string
	c := newCloudServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"translations":[{"text":"привет"}]}`))
	})

	out, err := c.TranslateWord(context.Background(), "en", "ru", "hello")
	if err != nil {
		t.Fatalf("TranslateWord: %v", err)
	}
	if out != "привет" {
		t.Fatalf("got %q", out)
	}
	if auth != "Api-Key test-key" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
	if got.SourceLanguageCode != "en" || got.TargetLanguageCode != "ru" || got.Format != "PLAIN_TEXT" || !got.Speller {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if len(got.Texts) != 1 || got.Texts[0] != "hello" {
		t.Fatalf("expected exactly one text, got %q", got.Texts)
	}
}

func TestCloudJoinsFragments(t *testing.T) {
	c := newCloudServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translations":[{"text":"can"},{"text":"not"}]}`))
	})
	out, err := c.TranslateWord(context.Background(), "en", "en", "cannot")
	if err != nil {
		t.Fatalf("TranslateWord: %v", err)
	}
	if out != "can not" {
		t.Fatalf("got %q", out)
	}
}

func TestCloudErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `{"message":"internal"}`, translate.ErrAPIRequestFailed},
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad key"}`, translate.ErrAPIRequestFailed},
		{"not json", http.StatusOK, `<html>`, translate.ErrMalformedResponse},
		{"no translations", http.StatusOK, `{}`, translate.ErrMalformedResponse},
		{"empty translations", http.StatusOK, `{"translations":[]}`, translate.ErrMalformedResponse},
		{"fragment without text", http.StatusOK, `{"translations":[{"detectedLanguageCode":"en"}]}`, translate.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCloudServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.TranslateWord(context.Background(), "en", "ru", "word")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCloudAPIErrorCarriesStatusAndBody(t *testing.T) {
	c := newCloudServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(strings.Repeat("x", 2000)))
	})
	_, err := c.TranslateWord(context.Background(), "en", "ru", "word")
	var apiErr *translate.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *translate.APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
	if len(apiErr.Body) > maxErrorBody {
		t.Fatalf("body not truncated: %d bytes", len(apiErr.Body))
	}
	if !strings.HasPrefix(err.Error(), "error accessing the resource: 429") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestCloudAPIErrorBodyKeepsRunesWhole(t *testing.T) {
	c := newCloudServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("x" + strings.Repeat("ж", 1000)))
	})
	_, err := c.TranslateWord(context.Background(), "en", "ru", "word")
	var apiErr *translate.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *translate.APIError, got %T: %v", err, err)
	}
	if len(apiErr.Body) > maxErrorBody {
		t.Fatalf("body not truncated: %d bytes", len(apiErr.Body))
	}
	if !utf8.ValidString(apiErr.Body) {
		t.Fatalf("truncated body is not valid UTF-8: %q", apiErr.Body[len(apiErr.Body)-4:])
	}
}

func TestCloudSendsFolderAndScheme(t *testing.T) {
	var raw map[string]any
	var auth string
	c := newCloudServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"translations":[{"text":"x"}]}`))
	})
	c.AuthScheme = "Bearer"
	c.FolderID = "b1g"
	if _, err := c.TranslateWord(context.Background(), "en", "ru", "word"); err != nil {
		t.Fatalf("TranslateWord: %v", err)
	}
	if auth != "Bearer test-key" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
	if raw["folderId"] != "b1g" {
		t.Fatalf("folderId not sent: %v", raw)
	}
}

func TestCloudHonoursContext(t *testing.T) {
	release := make(chan struct{})
	c := newCloudServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.TranslateWord(ctx, "en", "ru", "word")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
