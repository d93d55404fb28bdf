package main

import (
	"context"
	"errors"

	"github.com/japaniel/wordtrans/pkg/service"
)

// Request is the invocation payload.
type Request struct {
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
	Text       string `json:"text"`
}

// Response is returned for every non-warmup invocation. Failures are
// reported in Error rather than as a Lambda error so callers can tell bad
// input from an unavailable function.
type Response struct {
	Translation string   `json:"translation"`
	Segments    []string `json:"segments,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type translator interface {
	TranslateAndSave(ctx context.Context, req service.Request) (*service.Result, error)
}

type handler struct {
	svc translator
}

// Handle validates and translates req.
func (h *handler) Handle(ctx context.Context, req Request) *Response {
	res, err := h.svc.TranslateAndSave(ctx, service.Request{
		ClientIP:   "lambda",
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Text:       req.Text,
	})
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return &Response{Error: verr.Msg}
		}
		return &Response{Error: "translation failed: " + err.Error()}
	}
	return &Response{Translation: res.Text, Segments: res.Segments}
}
