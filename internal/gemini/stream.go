package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gemchat/gemchat/pkg/types"
)

// generatePayload is the request body for generateContent calls.
type generatePayload struct {
	Contents          []types.Content `json:"contents"`
	SystemInstruction *types.Content  `json:"systemInstruction,omitempty"`
	Tools             []tool          `json:"tools,omitempty"`
}

type tool struct {
	GoogleSearch  *struct{} `json:"googleSearch,omitempty"`
	CodeExecution *struct{} `json:"codeExecution,omitempty"`
}

// generateResponse is one generateContent response, or one SSE chunk of
// a streamGenerateContent response.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []responsePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type responsePart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *types.InlineData `json:"inlineData,omitempty"`

	ExecutableCode *struct {
		Language string `json:"language"`
		Code     string `json:"code"`
	} `json:"executableCode,omitempty"`
	CodeExecutionResult *struct {
		Outcome string `json:"outcome"`
		Output  string `json:"output"`
	} `json:"codeExecutionResult,omitempty"`
}

func (r *generateResponse) firstParts() []responsePart {
	if len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0].Content.Parts
}

// renderParts flattens candidate parts into display text. Code
// execution parts are fenced so clients render them as blocks.
func renderParts(parts []responsePart) string {
	var b strings.Builder
	for _, part := range parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
		if part.ExecutableCode != nil {
			fmt.Fprintf(&b, "\n```python\n%s\n```\n", part.ExecutableCode.Code)
		}
		if part.CodeExecutionResult != nil {
			fmt.Fprintf(&b, "\n> Output:\n```\n%s\n```\n", part.CodeExecutionResult.Output)
		}
	}
	return b.String()
}

// buildPayload converts a generation request into the upstream body.
func buildPayload(req *types.GenerateRequest) generatePayload {
	payload := generatePayload{Contents: req.History}

	if req.SystemInstruction != "" {
		payload.SystemInstruction = &types.Content{
			Parts: []types.Part{{Text: req.SystemInstruction}},
		}
	}

	if req.UseGrounding {
		payload.Tools = append(payload.Tools, tool{GoogleSearch: &struct{}{}})
	}
	if req.UseCodeExecution {
		payload.Tools = append(payload.Tools, tool{CodeExecution: &struct{}{}})
	}
	return payload
}

// Stream is an open streamed generation. Recv returns one text delta
// per upstream chunk and io.EOF when the model is done.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// StreamGenerate starts a streamed generation. Errors before the first
// chunk (bad request, quota) surface here; after that they come out of
// Recv.
func (c *Client) StreamGenerate(ctx context.Context, req *types.GenerateRequest) (*Stream, error) {
	model := req.ModelName
	if model == "" {
		model = "gemini-2.0-flash"
	}

	body, err := json.Marshal(buildPayload(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, model, c.apiKey)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Stream{body: resp.Body, scanner: scanner}, nil
}

// Recv returns the next non-empty text delta. It skips SSE keep-alives
// and chunks that carry no renderable parts.
func (s *Stream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		data := bytes.TrimPrefix(line, []byte("data: "))
		if bytes.Equal(data, []byte("[DONE]")) {
			return "", io.EOF
		}

		var chunk generateResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Malformed keep-alive or partial frame, skip it.
			continue
		}
		if text := renderParts(chunk.firstParts()); text != "" {
			return text, nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Close releases the underlying connection.
func (s *Stream) Close() error {
	return s.body.Close()
}
