package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/japaniel/wordtrans/pkg/translate"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini translates words with a Gemini model through the Gemini API.
type Gemini struct {
	client *genai.Client
	Model  string
}

// NewGemini creates a Gemini backend. An empty baseURL uses the public API;
// httpClient may be nil.
func NewGemini(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, Model: DefaultGeminiModel}, nil
}

func (g *Gemini) TranslateWord(ctx context.Context, sourceLang, targetLang, word string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.Model,
		genai.Text(wordPrompt(sourceLang, targetLang, word)),
		&genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.3)},
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", translate.ErrAPIRequestFailed, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty gemini response", translate.ErrMalformedResponse)
	}
	return text, nil
}
