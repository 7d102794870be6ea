package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemchat/gemchat/pkg/types"
)

func streamRequest() *types.GenerateRequest {
	return &types.GenerateRequest{
		History: []types.Content{{Role: types.RoleUser, Parts: []types.Part{{Text: "Hello"}}}},
	}
}

func TestStreamGenerate_AccumulatesChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate/stream", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "Hi")
		flusher.Flush()
		fmt.Fprint(w, " there")
	}))
	defer srv.Close()

	var chunks []string
	c := NewClient(srv.URL)
	text, err := c.StreamGenerate(context.Background(), streamRequest(), func(chunk string) {
		chunks = append(chunks, chunk)
	})

	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)
	assert.NotEmpty(t, chunks)
	var joined string
	for _, ch := range chunks {
		joined += ch
	}
	assert.Equal(t, "Hi there", joined)
}

func TestStreamGenerate_StructuredErrorBeforeStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"kind":"RATE_LIMIT","message":"You've hit the free tier rate limit.","waitSeconds":9}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	text, err := c.StreamGenerate(context.Background(), streamRequest(), nil)

	assert.Empty(t, text)
	var outcome *types.ErrorOutcome
	require.ErrorAs(t, err, &outcome)
	assert.Equal(t, types.OutcomeRateLimit, outcome.Kind)
	require.NotNil(t, outcome.WaitSeconds)
	assert.Equal(t, 9, *outcome.WaitSeconds)
}

func TestStreamGenerate_InBandTrailingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "partial answer\n[ERROR: Quota exceeded. Please retry in 2.1s.]")
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	text, err := c.StreamGenerate(context.Background(), streamRequest(), nil)

	assert.Equal(t, "partial answer", text)
	var outcome *types.ErrorOutcome
	require.ErrorAs(t, err, &outcome)
	assert.Equal(t, types.OutcomeRateLimit, outcome.Kind)
	require.NotNil(t, outcome.WaitSeconds)
	assert.Equal(t, 3, *outcome.WaitSeconds)
}

func TestStreamGenerate_InBandGeneralError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "\n[ERROR: upstream exploded]")
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	text, err := c.StreamGenerate(context.Background(), streamRequest(), nil)

	assert.Empty(t, text)
	var outcome *types.ErrorOutcome
	require.ErrorAs(t, err, &outcome)
	assert.Equal(t, types.OutcomeGeneral, outcome.Kind)
	assert.Equal(t, "upstream exploded", outcome.Message)
}

func TestStreamGenerate_CancellationKeepsPartialText(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "partial")
		flusher.Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(srv.URL)

	got := make(chan struct{})
	var text string
	var err error
	go func() {
		text, err = c.StreamGenerate(ctx, streamRequest(), func(string) {})
		close(got)
	}()

	// Give the first chunk time to land, then cancel mid-stream.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not return after cancellation")
	}

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, "partial", text)
}

func TestGenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate/image", r.URL.Path)
		fmt.Fprint(w, `{"image":"ZGF0YQ==","mimeType":"image/png"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	img, err := c.GenerateImage(context.Background(), "a boat")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, "ZGF0YQ==", img.Image)
}

func TestGenerateImage_StructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"kind":"GENERAL","message":"No image generated"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GenerateImage(context.Background(), "x")

	var outcome *types.ErrorOutcome
	require.ErrorAs(t, err, &outcome)
	assert.Equal(t, "No image generated", outcome.Message)
}

func TestModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		fmt.Fprint(w, `[{"name":"models/gemini-2.0-flash","displayName":"Gemini 2.0 Flash"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	models, err := c.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "models/gemini-2.0-flash", models[0].Name)
}

func TestResolveModel(t *testing.T) {
	models := []types.Model{
		{Name: "models/gemini-2.0-flash"},
		{Name: "models/gemini-2.0-flash-lite"},
		{Name: "models/gemini-2.5-pro"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"gemini-2.0-flash", "gemini-2.0-flash"},
		{"models/gemini-2.0-flash", "gemini-2.0-flash"},
		{"gemini-2.5", "gemini-2.5-pro"},
		{"gemini-25-pro", "gemini-2.5-pro"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveModel(tt.input, models), "input %q", tt.input)
	}
}

func TestResolveModel_NoModels(t *testing.T) {
	assert.Equal(t, "anything", ResolveModel("anything", nil))
}
