// Package backend holds the services that translate a single word:
// the cloud translation REST API, OpenAI and Gemini chat models, and a
// circuit breaker that can wrap any of them.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/japaniel/wordtrans/pkg/translate"
)

const (
	DefaultCloudURL   = "https://translate.api.cloud.yandex.net/translate/v2/translate"
	DefaultAuthScheme = "Api-Key"

	// maxErrorBody bounds how much of a failed response ends up in an error.
	maxErrorBody = 500
)

// Cloud calls a translation REST API that takes a list of texts and answers
// with a list of translation fragments.
type Cloud struct {
	URL        string
	APIKey     string
	AuthScheme string
	FolderID   string
	Speller    bool
	Client     *http.Client
}

// NewCloud returns a Cloud backend with the default endpoint and scheme.
func NewCloud(apiKey string) *Cloud {
	return &Cloud{
		URL:        DefaultCloudURL,
		APIKey:     apiKey,
		AuthScheme: DefaultAuthScheme,
		Speller:    true,
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type cloudRequest struct {
	SourceLanguageCode string   `json:"sourceLanguageCode"`
	TargetLanguageCode string   `json:"targetLanguageCode"`
	Format             string   `json:"format"`
	Texts              []string `json:"texts"`
	Speller            bool     `json:"speller"`
	FolderID           string   `json:"folderId,omitempty"`
}

type cloudResponse struct {
	Translations []struct {
		Text                 *string `json:"text"`
		DetectedLanguageCode string  `json:"detectedLanguageCode,omitempty"`
	} `json:"translations"`
}

// TranslateWord sends one word and joins the returned fragments with spaces.
func (c *Cloud) TranslateWord(ctx context.Context, sourceLang, targetLang, word string) (string, error) {
	body, err := json.Marshal(cloudRequest{
		SourceLanguageCode: sourceLang,
		TargetLanguageCode: targetLang,
		Format:             "PLAIN_TEXT",
		Texts:              []string{word},
		Speller:            c.Speller,
		FolderID:           c.FolderID,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	scheme := c.AuthScheme
	if scheme == "" {
		scheme = DefaultAuthScheme
	}
	req.Header.Set("Authorization", scheme+" "+c.APIKey)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", translate.ErrAPIRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+utf8.UTFMax))
		return "", &translate.APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(truncate(string(snippet), maxErrorBody)),
		}
	}

	var out cloudResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %w", translate.ErrMalformedResponse, err)
	}
	if len(out.Translations) == 0 {
		return "", fmt.Errorf("%w: no translations in response", translate.ErrMalformedResponse)
	}
	parts := make([]string, 0, len(out.Translations))
	for i, tr := range out.Translations {
		if tr.Text == nil {
			return "", fmt.Errorf("%w: translation %d has no text", translate.ErrMalformedResponse, i)
		}
		parts = append(parts, *tr.Text)
	}
	return strings.Join(parts, " "), nil
}
