package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

const (
	// WarmupSource marks scheduled keep-warm events.
	WarmupSource = "warmup"

	// WarmupDelay keeps this instance busy long enough for the
	// self-invocations to land on other instances.
	WarmupDelay = 75 * time.Millisecond
)

type WarmupEvent struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

type WarmupResponse struct {
	Status          string `json:"status"`
	InstancesWarmed int    `json:"instancesWarmed"`
}

// IsWarmupEvent reports whether event is a keep-warm ping.
func IsWarmupEvent(event json.RawMessage) (*WarmupEvent, bool) {
	var w WarmupEvent
	if err := json.Unmarshal(event, &w); err != nil || w.Source != WarmupSource {
		return nil, false
	}
	if w.Concurrency < 0 {
		w.Concurrency = 0
	}
	return &w, true
}

// invoker is the part of the Lambda client used for self-invocation.
type invoker interface {
	Invoke(ctx context.Context, in *lambdasdk.InvokeInput, optFns ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error)
}

// newInvoker is replaced in tests.
var newInvoker = func(ctx context.Context) (invoker, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return lambdasdk.NewFromConfig(cfg), nil
}

// HandleWarmup answers a warmup event without translating anything. With a
// positive Concurrency it asynchronously invokes this function that many
// more times so several instances stay warm.
func HandleWarmup(ctx context.Context, warmup *WarmupEvent) (*WarmupResponse, error) {
	warmed := 1
	if warmup.Concurrency > 0 {
		n, err := selfInvoke(ctx, warmup.Concurrency)
		if err != nil {
			log.Printf("warmup: %d of %d self-invocations accepted: %v", n, warmup.Concurrency, err)
		}
		warmed += n
	}
	time.Sleep(WarmupDelay)
	return &WarmupResponse{Status: "warm", InstancesWarmed: warmed}, nil
}

// selfInvoke fires count async invocations and returns how many were
// accepted along with the first error.
func selfInvoke(ctx context.Context, count int) (int, error) {
	client, err := newInvoker(ctx)
	if err != nil {
		return 0, err
	}
	// children must not fan out again
	payload, err := json.Marshal(WarmupEvent{Source: WarmupSource})
	if err != nil {
		return 0, err
	}
	name := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		firstErr error
	)
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Invoke(ctx, &lambdasdk.InvokeInput{
				FunctionName:   aws.String(name),
				InvocationType: types.InvocationTypeEvent,
				Payload:        payload,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			accepted++
		}()
	}
	wg.Wait()
	return accepted, firstErr
}
