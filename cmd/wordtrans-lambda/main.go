// Package main runs the word translator as an AWS Lambda function.
// Configuration comes from WORDTRANS_* environment variables.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/japaniel/wordtrans/pkg/backend"
	"github.com/japaniel/wordtrans/pkg/config"
	"github.com/japaniel/wordtrans/pkg/service"
	"github.com/japaniel/wordtrans/pkg/translate"
	"github.com/japaniel/wordtrans/pkg/workerpool"
)

var (
	initMu sync.Mutex
	h      *handler

	// buildHandler is replaced in tests.
	buildHandler = newHandler
)

func main() {
	lambda.Start(handleRequest)
}

func handleRequest(ctx context.Context, event json.RawMessage) (any, error) {
	if warmup, ok := IsWarmupEvent(event); ok {
		return HandleWarmup(ctx, warmup)
	}

	cur, err := currentHandler(ctx)
	if err != nil {
		return nil, err
	}

	var req Request
	if err := json.Unmarshal(event, &req); err != nil {
		return nil, err
	}
	return cur.Handle(ctx, req), nil
}

// currentHandler builds the handler on first use. A failed build is not
// kept, so the next invocation tries again.
func currentHandler(ctx context.Context) (*handler, error) {
	initMu.Lock()
	defer initMu.Unlock()
	if h != nil {
		return h, nil
	}
	built, err := buildHandler(ctx)
	if err != nil {
		log.Printf("init failed: %v", err)
		return nil, err
	}
	h = built
	return h, nil
}

// newHandler builds the pool and backend once per container. The pool lives
// as long as the container does.
func newHandler(ctx context.Context) (*handler, error) {
	v, err := config.New("")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)

	b, err := backend.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	pool := workerpool.New(workerpool.Options{
		Workers:        cfg.Pool.Workers,
		QueueCapacity:  cfg.Pool.QueueCapacity,
		QueueWarnDepth: cfg.Pool.QueueWarnDepth,
		Logger:         logger,
	})
	pool.Start()

	orch := translate.New(pool, b)
	orch.TaskDelay = cfg.Translate.TaskDelay
	orch.Logger = logger

	svc := service.New(orch, nil, nil)
	svc.MaxInputLen = cfg.Service.MaxInputLen
	svc.SegmentMaxLen = cfg.Segment.MaxLen
	svc.Logger = logger
	return &handler{svc: svc}, nil
}
