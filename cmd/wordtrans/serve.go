package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/wordtrans/pkg/server"
	"github.com/japaniel/wordtrans/pkg/service"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the translation HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().Int("max-len", 100, "Maximum stored part length in characters")
	cmd.Flags().Int("max-input", 100, "Maximum input length in characters")
	return cmd
}

// serve runs until ctx is cancelled, then stops the HTTP server, the worker
// pool, the segment writer and the database in that order.
func (a *app) serve(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	pool := a.newPool()
	orch, err := a.newOrchestrator(ctx, pool)
	if err != nil {
		a.shutdownPool(pool)
		return err
	}

	writer := service.NewBatchWriter(store, 50, time.Second)
	writer.OnError = func(err error) { a.logger.Printf("segment writer: %v", err) }

	svc := service.New(orch, store, writer)
	svc.MaxInputLen = a.cfg.Service.MaxInputLen
	svc.SegmentMaxLen = a.cfg.Segment.MaxLen
	svc.SaveDelay = a.cfg.Service.SaveDelay
	svc.Logger = a.logger

	srv := server.New(svc, store)
	srv.Logger = a.logger
	httpSrv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Printf("listening on %s (%d workers, backend %s)", a.cfg.Server.Addr, pool.Workers(), a.cfg.Translate.Backend)
		errCh <- httpSrv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Printf("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Pool.ShutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Printf("http shutdown: %v", err)
	}
	a.shutdownPool(pool)
	if err := writer.Close(); err != nil {
		a.logger.Printf("segment writer: %v", err)
	}
	return serveErr
}
