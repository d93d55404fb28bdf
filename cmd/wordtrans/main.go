package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/japaniel/wordtrans/pkg/backend"
	"github.com/japaniel/wordtrans/pkg/config"
	"github.com/japaniel/wordtrans/pkg/db"
	"github.com/japaniel/wordtrans/pkg/translate"
	"github.com/japaniel/wordtrans/pkg/workerpool"
)

const version = "0.1.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *log.Logger
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"workers":     "pool.workers",
	"backend":     "translate.backend",
	"api-url":     "translate.api_url",
	"task-delay":  "translate.task_delay",
	"driver":      "storage.driver",
	"db":          "storage.dsn",
	"max-len":     "segment.max_len",
	"addr":        "server.addr",
	"max-input":   "service.max_input_len",
	"openai-base": "openai.base_url",
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "wordtrans",
		Short: "Word-by-word parallel text translation",
		Long: `wordtrans translates text one word at a time on a bounded worker pool
and stores the translation in length-limited parts.

Examples:
  wordtrans translate --from en --to ru "hello world"
  echo "a long text" | wordtrans segment --max-len 20
  wordtrans serve --addr :8080`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./wordtrans.yaml or $HOME/.wordtrans.yaml)")
	pf.Int("workers", 10, "Number of translation workers")
	pf.String("backend", "cloud", "Translation backend: cloud, openai or gemini")
	pf.String("api-url", backend.DefaultCloudURL, "Cloud translation API endpoint")
	pf.String("openai-base", "", "OpenAI-compatible API base URL")
	pf.Duration("task-delay", translate.DefaultTaskDelay, "Pause before each word request")
	pf.String("driver", "sqlite3", "Storage driver: sqlite3 or postgres")
	pf.String("db", "wordtrans.db", "Storage DSN (SQLite path or postgres URL)")
	pf.Bool("no-breaker", false, "Disable the circuit breaker around the backend")

	root.AddCommand(newServeCmd(a), newTranslateCmd(a), newSegmentCmd(a), newHistoryCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command, args []string) error {
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})
	if bindErr != nil {
		return bindErr
	}
	if noBreaker, _ := cmd.Flags().GetBool("no-breaker"); noBreaker {
		v.Set("breaker.enabled", false)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = log.New(cmd.ErrOrStderr(), "wordtrans: ", log.LstdFlags)
	if used := v.ConfigFileUsed(); used != "" {
		a.logger.Printf("using config file %s", used)
	}
	return nil
}

// newPool creates and starts the worker pool shared by all translations.
func (a *app) newPool() *workerpool.Pool {
	pool := workerpool.New(workerpool.Options{
		Workers:        a.cfg.Pool.Workers,
		QueueCapacity:  a.cfg.Pool.QueueCapacity,
		QueueWarnDepth: a.cfg.Pool.QueueWarnDepth,
		Logger:         a.logger,
	})
	pool.Start()
	return pool
}

func (a *app) newOrchestrator(ctx context.Context, pool *workerpool.Pool) (*translate.Orchestrator, error) {
	b, err := backend.New(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	o := translate.New(pool, b)
	o.TaskDelay = a.cfg.Translate.TaskDelay
	o.Logger = a.logger
	return o, nil
}

func (a *app) openStore(ctx context.Context) (*db.Store, error) {
	store, err := db.Open(ctx, a.cfg.Storage.Driver, a.cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// shutdownPool stops the pool with the configured grace period.
func (a *app) shutdownPool(pool *workerpool.Pool) {
	start := time.Now()
	if err := pool.Shutdown(a.cfg.Pool.ShutdownGrace); err != nil {
		a.logger.Printf("worker pool shutdown: %v", err)
		return
	}
	if d := time.Since(start); d > time.Second {
		a.logger.Printf("worker pool stopped in %v", d.Round(time.Millisecond))
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
