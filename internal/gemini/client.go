// Package gemini implements the HTTP client for the Google generative
// language API: streamed text generation, image generation, and model
// listing.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gemchat/gemchat/internal/logging"
	"github.com/gemchat/gemchat/pkg/types"
)

// Retry configuration for upstream calls.
const (
	retryInitialInterval = 1 * time.Second
	retryMaxInterval     = 30 * time.Second
	retryMaxElapsedTime  = 2 * time.Minute
	maxRetries           = 3
)

// Client talks to the generative language API.
type Client struct {
	apiKey     string
	baseURL    string
	imageModel string
	httpClient *http.Client
}

// NewClient creates an API client. baseURL is the versioned API root,
// e.g. https://generativelanguage.googleapis.com/v1beta.
func NewClient(apiKey, baseURL, imageModel string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		imageModel: imageModel,
		// No client timeout: streamed responses stay open as long as
		// the model keeps talking. Cancellation comes from the context.
		httpClient: &http.Client{},
	}
}

// APIError is a structured error returned by the upstream API. Its
// string form leads with the HTTP status code so downstream
// classification can recognize rate limiting.
type APIError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Code, e.Status, e.Message)
}

// newRetryBackoff creates an exponential backoff with jitter, capped
// and context-aware.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.MaxElapsedTime = retryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

// do issues one request and retries transient failures. Responses with
// 4xx statuses are permanent: retrying a quota error only burns quota.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	op := func() (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		apiErr := decodeAPIError(resp)
		if resp.StatusCode >= 500 {
			logging.Warn().Int("status", resp.StatusCode).Msg("upstream error, retrying")
			return nil, apiErr
		}
		return nil, backoff.Permanent(apiErr)
	}
	return backoff.RetryWithData(op, newRetryBackoff(ctx))
}

// decodeAPIError drains resp and builds an APIError from its body.
// The body is consumed and closed.
func decodeAPIError(resp *http.Response) *APIError {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var wrapped struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Error.Message != "" {
		if wrapped.Error.Code == 0 {
			wrapped.Error.Code = resp.StatusCode
		}
		return &wrapped.Error
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode), Message: msg}
}

// ListModels returns the models available to the configured key.
func (c *Client) ListModels(ctx context.Context) ([]types.Model, error) {
	url := fmt.Sprintf("%s/models?key=%s", c.baseURL, c.apiKey)
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Models []types.Model `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}
	return result.Models, nil
}

// GenerateImage asks the image model for a single image. When the model
// answers with text instead (refusals mostly), that text becomes the
// error message.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*types.GeneratedImage, error) {
	payload := generatePayload{
		Contents: []types.Content{{Parts: []types.Part{{Text: prompt}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.imageModel, c.apiKey)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	defer resp.Body.Close()

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode image response: %w", err)
	}

	parts := result.firstParts()
	for _, part := range parts {
		if part.InlineData != nil && strings.HasPrefix(part.InlineData.MimeType, "image/") {
			return &types.GeneratedImage{
				Image:    part.InlineData.Data,
				MimeType: part.InlineData.MimeType,
			}, nil
		}
	}
	for _, part := range parts {
		if part.Text != "" {
			return nil, fmt.Errorf("%s", part.Text)
		}
	}
	return nil, fmt.Errorf("no image generated")
}
