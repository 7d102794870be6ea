// Package transport implements the HTTP client side of the generation
// proxy: streamed text, image generation, and model listing.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/gemchat/gemchat/internal/classify"
	"github.com/gemchat/gemchat/pkg/types"
)

// ErrCancelled reports a stream stopped by its context. The text
// accumulated up to that point is still returned alongside it.
var ErrCancelled = errors.New("generation cancelled")

// The server appends failures after the first byte in-band, because
// the response status is already committed by then.
var inBandErrorPattern = regexp.MustCompile(`\n\[ERROR: (.+)\]$`)

// Client talks to the stream proxy server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a proxy client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// Streams stay open for as long as the model talks, so the
		// only deadline is the caller's context.
		httpClient: &http.Client{},
	}
}

// StreamGenerate runs a streamed generation, invoking onChunk for each
// text delta as it arrives. It returns the complete accumulated text.
// Failures surface as *types.ErrorOutcome errors whether the server
// reported them before the stream or appended them in-band; a context
// cancellation returns the partial text with ErrCancelled.
func (c *Client) StreamGenerate(ctx context.Context, req *types.GenerateRequest, onChunk func(string)) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate/stream", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrCancelled
		}
		return "", classify.Error(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeErrorResponse(resp)
	}

	var full strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			full.WriteString(chunk)
			if onChunk != nil {
				onChunk(chunk)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return full.String(), ErrCancelled
			}
			return full.String(), classify.Error(err)
		}
	}

	text := full.String()
	if m := inBandErrorPattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSuffix(text, m[0])
		return text, classify.Classify(m[1])
	}
	return text, nil
}

// GenerateImage asks the server for a single image.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*types.GeneratedImage, error) {
	body, err := json.Marshal(types.ImageRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate/image", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify.Error(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeErrorResponse(resp)
	}

	var img types.GeneratedImage
	if err := json.NewDecoder(resp.Body).Decode(&img); err != nil {
		return nil, fmt.Errorf("failed to decode image response: %w", err)
	}
	return &img, nil
}

// Models returns the server's model list.
func (c *Client) Models(ctx context.Context) ([]types.Model, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify.Error(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeErrorResponse(resp)
	}

	var models []types.Model
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}
	return models, nil
}

// decodeErrorResponse turns a non-200 response into the classified
// outcome the server shipped, falling back to classifying the raw body.
func decodeErrorResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var wrapped types.ErrorResponse
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
		return wrapped.Error
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = resp.Status
	}
	return classify.Classify(msg)
}
