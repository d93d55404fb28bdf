package backend

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/japaniel/wordtrans/pkg/config"
	"github.com/japaniel/wordtrans/pkg/translate"
)

// New builds the backend selected by cfg.Translate.Backend, wrapped in a
// circuit breaker when cfg.Breaker.Enabled is set.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (translate.Backend, error) {
	httpClient := &http.Client{Timeout: cfg.Translate.RequestTimeout}

	var b translate.Backend
	switch cfg.Translate.Backend {
	case "cloud", "":
		c := NewCloud(cfg.Translate.APIKey)
		if cfg.Translate.APIURL != "" {
			c.URL = cfg.Translate.APIURL
		}
		if cfg.Translate.AuthScheme != "" {
			c.AuthScheme = cfg.Translate.AuthScheme
		}
		c.FolderID = cfg.Translate.FolderID
		c.Speller = cfg.Translate.Speller
		c.Client = httpClient
		b = c
	case "openai":
		o := NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, httpClient)
		if cfg.OpenAI.Model != "" {
			o.Model = cfg.OpenAI.Model
		}
		b = o
	case "gemini":
		g, err := NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.BaseURL, httpClient)
		if err != nil {
			return nil, err
		}
		if cfg.Gemini.Model != "" {
			g.Model = cfg.Gemini.Model
		}
		b = g
	default:
		return nil, fmt.Errorf("unknown translation backend %q", cfg.Translate.Backend)
	}

	if cfg.Breaker.Enabled {
		b = NewBreaker(b, BreakerSettings{
			Name:        cfg.Translate.Backend,
			MaxFailures: cfg.Breaker.MaxFailures,
			OpenTimeout: cfg.Breaker.OpenTimeout,
			Logger:      logger,
		})
	}
	return b, nil
}
