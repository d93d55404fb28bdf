package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"github.com/japaniel/wordtrans/pkg/translate"
)

const DefaultOpenAIModel = openai.GPT4oMini

// OpenAI translates words with a chat completion model.
type OpenAI struct {
	client *openai.Client
	Model  string
}

// NewOpenAI creates an OpenAI backend. An empty baseURL uses the public API;
// httpClient may be nil.
func NewOpenAI(apiKey, baseURL string, httpClient *http.Client) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		Model:  DefaultOpenAIModel,
	}
}

func wordPrompt(sourceLang, targetLang, word string) string {
	return fmt.Sprintf("Translate the word '%s' from language %q to language %q. "+
		"Respond with only the translation, nothing else.", word, sourceLang, targetLang)
}

func (o *OpenAI) TranslateWord(ctx context.Context, sourceLang, targetLang, word string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: wordPrompt(sourceLang, targetLang, word)},
		},
		MaxTokens:   50,
		Temperature: 0.3,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", translate.ErrMalformedResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", translate.ErrMalformedResponse)
	}
	return text, nil
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &translate.APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Status:     fmt.Sprintf("%d %s", apiErr.HTTPStatusCode, http.StatusText(apiErr.HTTPStatusCode)),
			Body:       apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &translate.APIError{
			StatusCode: reqErr.HTTPStatusCode,
			Status:     fmt.Sprintf("%d %s", reqErr.HTTPStatusCode, http.StatusText(reqErr.HTTPStatusCode)),
			Body:       truncate(string(reqErr.Body), maxErrorBody),
		}
	}
	return fmt.Errorf("%w: %w", translate.ErrAPIRequestFailed, err)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
