// Package server exposes translation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/japaniel/wordtrans/pkg/db"
	"github.com/japaniel/wordtrans/pkg/service"
	"github.com/japaniel/wordtrans/pkg/translate"
	"github.com/japaniel/wordtrans/pkg/workerpool"
)

// Translator is satisfied by *service.Service.
type Translator interface {
	TranslateAndSave(ctx context.Context, req service.Request) (*service.Result, error)
}

// History is satisfied by *db.Store.
type History interface {
	GetRequest(ctx context.Context, id int64) (*db.TranslationRequest, error)
	ListSegments(ctx context.Context, requestID int64) ([]db.TranslatedText, error)
}

type Server struct {
	svc     Translator
	history History
	Logger  *log.Logger
}

// New returns a Server. history may be nil, which disables the lookup route.
func New(svc Translator, history History) *Server {
	return &Server{svc: svc, history: history}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/translate", s.handleTranslate)
	mux.HandleFunc("GET /api/translations/{id}", s.handleGetTranslation)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	req := service.Request{
		ClientIP:   clientIP(r),
		SourceLang: r.FormValue("sourceLang"),
		TargetLang: r.FormValue("targetLang"),
		Text:       r.FormValue("text"),
	}
	s.logf("Received parameters: sourceLang=%s, targetLang=%s, text.length()=%d", req.SourceLang, req.TargetLang, len([]rune(req.Text)))

	start := time.Now()
	res, err := s.svc.TranslateAndSave(r.Context(), req)
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			s.logf("Error during translation: %v", err)
		}
		http.Error(w, msg, status)
		return
	}
	s.logf("Translation finished successfully in %d ms!", time.Since(start).Milliseconds())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if res.RequestID > 0 {
		w.Header().Set("X-Request-Id", strconv.FormatInt(res.RequestID, 10))
	}
	w.Write([]byte(res.Text))
}

// errorStatus maps a translation error to a status code and response body.
func errorStatus(err error) (int, string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.Is(err, workerpool.ErrPoolClosed), errors.Is(err, workerpool.ErrQueueFull):
		return http.StatusServiceUnavailable, "Service is shutting down or overloaded, try again later."
	case errors.Is(err, translate.ErrInterrupted):
		return http.StatusServiceUnavailable, "Translation was interrupted"
	case errors.Is(err, translate.ErrTranslationFailed):
		return http.StatusInternalServerError, err.Error()
	}
	return http.StatusInternalServerError, "Internal server error."
}

type translationResponse struct {
	Request  *db.TranslationRequest `json:"request"`
	Segments []db.TranslatedText    `json:"segments"`
}

func (s *Server) handleGetTranslation(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history is not available", http.StatusNotFound)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	req, err := s.history.GetRequest(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "translation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logf("get translation %d: %v", id, err)
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
		return
	}
	segs, err := s.history.ListSegments(r.Context(), id)
	if err != nil {
		s.logf("list segments of %d: %v", id, err)
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
		return
	}
	if segs == nil {
		segs = []db.TranslatedText{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(translationResponse{Request: req, Segments: segs})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}
