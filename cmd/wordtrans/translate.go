package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/wordtrans/pkg/extract"
	"github.com/japaniel/wordtrans/pkg/segment"
	"github.com/japaniel/wordtrans/pkg/service"
)

type translateOptions struct {
	from         string
	to           string
	url          string
	showSegments bool
	save         bool
}

func newTranslateCmd(a *app) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text given as arguments, on stdin or fetched from --url",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTranslate(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.from, "from", "", "Source language code (two letters)")
	cmd.Flags().StringVar(&opts.to, "to", "", "Target language code (two letters)")
	cmd.Flags().StringVar(&opts.url, "url", "", "Translate the article at this URL")
	cmd.Flags().BoolVar(&opts.showSegments, "segments", false, "Print the stored parts, one per line")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Record the request and its parts in the database")
	cmd.Flags().Int("max-len", 100, "Maximum part length in characters")
	cmd.Flags().Int("max-input", 100, "Maximum input length in characters when saving")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func (a *app) runTranslate(cmd *cobra.Command, opts *translateOptions, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	text, err := a.inputText(ctx, cmd, opts, args)
	if err != nil {
		return err
	}

	pool := a.newPool()
	defer a.shutdownPool(pool)
	orch, err := a.newOrchestrator(ctx, pool)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !opts.save {
		// without storage there is no column to fit, so any length is accepted
		if err := service.ValidateRequest(service.Request{SourceLang: opts.from, TargetLang: opts.to, Text: text}, 0); err != nil {
			return err
		}
		start := time.Now()
		translated, err := orch.Translate(ctx, opts.from, opts.to, text)
		if err != nil {
			return err
		}
		a.logger.Printf("translated %d words in %v", len(strings.Fields(text)), time.Since(start).Round(time.Millisecond))
		return printTranslation(out, translated, segment.Split(translated, a.cfg.Segment.MaxLen), opts.showSegments)
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	writer := service.NewBatchWriter(store, 10, time.Second)
	writer.OnError = func(err error) { a.logger.Printf("segment writer: %v", err) }

	svc := service.New(orch, store, writer)
	svc.MaxInputLen = a.cfg.Service.MaxInputLen
	svc.SegmentMaxLen = a.cfg.Segment.MaxLen
	svc.SaveDelay = a.cfg.Service.SaveDelay
	svc.Logger = a.logger

	res, err := svc.TranslateAndSave(ctx, service.Request{
		ClientIP:   "cli",
		SourceLang: opts.from,
		TargetLang: opts.to,
		Text:       text,
	})
	if err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("saving translation parts: %w", err)
	}
	a.logger.Printf("saved request %d with %d parts", res.RequestID, len(res.Segments))
	return printTranslation(out, res.Text, res.Segments, opts.showSegments)
}

func (a *app) inputText(ctx context.Context, cmd *cobra.Command, opts *translateOptions, args []string) (string, error) {
	switch {
	case opts.url != "":
		if len(args) > 0 {
			return "", fmt.Errorf("give either text arguments or --url, not both")
		}
		article, err := extract.FetchArticle(ctx, nil, opts.url)
		if err != nil {
			return "", err
		}
		a.logger.Printf("fetched %q (%d characters)", article.Title, len([]rune(article.Text)))
		return article.Text, nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

func printTranslation(w io.Writer, text string, segments []string, showSegments bool) error {
	if !showSegments {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	for _, s := range segments {
		if _, err := fmt.Fprintln(w, s); err != nil {
			return err
		}
	}
	return nil
}
