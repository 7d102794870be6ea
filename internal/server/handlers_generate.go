package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gemchat/gemchat/internal/classify"
	"github.com/gemchat/gemchat/internal/logging"
	"github.com/gemchat/gemchat/pkg/types"
)

// handleGenerateStream runs a streamed generation and relays text
// chunks as a chunked plain-text body. Failures before the first chunk
// are structured JSON; failures after it are appended in-band because
// the response status is already on the wire.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGeneralError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.History) == 0 || req.History[len(req.History)-1].Role != types.RoleUser {
		writeGeneralError(w, http.StatusBadRequest, "Last message must be from user")
		return
	}
	// The upstream API requires the history to open with a user turn.
	req.History = types.TrimLeadingNonUser(req.History)

	logging.Info().
		Str("model", req.ModelName).
		Bool("grounding", req.UseGrounding).
		Bool("code_execution", req.UseCodeExecution).
		Msg("starting generation")

	stream, err := s.upstream.StreamGenerate(r.Context(), &req)
	if err != nil {
		outcome := classify.Error(err)
		logging.Error().Err(err).Str("kind", string(outcome.Kind)).Msg("generation failed to start")
		writeOutcome(w, outcomeStatus(outcome), outcome)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	for {
		chunk, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if r.Context().Err() != nil {
				// Client went away; nobody is reading the marker.
				return
			}
			outcome := classify.Error(err)
			logging.Error().Err(err).Msg("stream interrupted")
			fmt.Fprintf(w, "\n[ERROR: %s]", outcome.Message)
			return
		}
		if chunk == "" {
			continue
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// handleGenerateImage generates a single image for a prompt.
func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req types.ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGeneralError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Prompt == "" {
		writeGeneralError(w, http.StatusBadRequest, "Prompt required")
		return
	}

	logging.Info().Str("prompt", req.Prompt).Msg("generating image")

	img, err := s.upstream.GenerateImage(r.Context(), req.Prompt)
	if err != nil {
		outcome := classify.Error(err)
		logging.Error().Err(err).Msg("image generation failed")
		writeOutcome(w, outcomeStatus(outcome), outcome)
		return
	}

	writeJSON(w, http.StatusOK, img)
}

// handleListModels proxies the upstream model list.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.upstream.ListModels(r.Context())
	if err != nil {
		outcome := classify.Error(err)
		writeOutcome(w, outcomeStatus(outcome), outcome)
		return
	}
	if models == nil {
		models = []types.Model{}
	}
	writeJSON(w, http.StatusOK, models)
}
