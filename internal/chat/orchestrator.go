// Package chat drives generation attempts: it composes requests from
// session history, applies streamed chunks to an in-flight placeholder
// message, and commits terminal state back into the session store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/gemchat/gemchat/internal/classify"
	"github.com/gemchat/gemchat/internal/config"
	"github.com/gemchat/gemchat/internal/event"
	"github.com/gemchat/gemchat/internal/logging"
	"github.com/gemchat/gemchat/internal/store"
	"github.com/gemchat/gemchat/internal/transport"
	"github.com/gemchat/gemchat/pkg/types"
)

// StopMarker is appended to the in-flight text when the user stops a
// generation.
const StopMarker = " [Stopped]"

// DefaultSystemInstruction applies when the settings carry none.
const DefaultSystemInstruction = "You are a helpful AI assistant."

const imageStatusText = "🎨 Generating image..."

// titleLimit caps auto-derived session titles.
const titleLimit = 30

var imageCommandPattern = regexp.MustCompile(`(?i)^/image\s*|^/imagine\s*`)

// ErrLastTurnNotUser rejects a generation whose transcript does not end
// with a user turn. Nothing is mutated or sent.
var ErrLastTurnNotUser = errors.New("last message must be from user")

// ErrNoUserTurn rejects a regeneration on a transcript with no user turn.
var ErrNoUserTurn = errors.New("no user message to regenerate from")

// Streamer is the generation surface the orchestrator drives.
type Streamer interface {
	StreamGenerate(ctx context.Context, req *types.GenerateRequest, onChunk func(string)) (string, error)
	GenerateImage(ctx context.Context, prompt string) (*types.GeneratedImage, error)
}

// attempt is one live generation. A session has at most one; a newer
// attempt preempts the old one rather than queuing behind it.
type attempt struct {
	id     string
	cancel context.CancelFunc
}

// Orchestrator runs the generation state machine per session.
type Orchestrator struct {
	store  *store.Store
	client Streamer
	bus    *event.Bus

	mu       sync.Mutex
	attempts map[string]*attempt
}

// New creates an orchestrator.
func New(st *store.Store, client Streamer, bus *event.Bus) *Orchestrator {
	return &Orchestrator{
		store:    st,
		client:   client,
		bus:      bus,
		attempts: make(map[string]*attempt),
	}
}

// Send appends a user message to the session and runs a generation for
// it, blocking until the attempt reaches a terminal state. The returned
// message is the assistant response; failed attempts return it flagged
// as an error rather than returning a Go error.
func (o *Orchestrator) Send(ctx context.Context, sessionID, text string, att *types.Attachment, cfg config.Settings) (*types.Message, error) {
	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userMsg := &types.Message{
		ID:         ulid.Make().String(),
		Text:       text,
		IsUser:     true,
		Attachment: att,
		Timestamp:  time.Now().UnixMilli(),
	}
	sess.Messages = append(sess.Messages, userMsg)
	deriveTitle(sess)
	sess.UpdatedAt = time.Now().UnixMilli()
	if err := o.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	o.bus.Publish(event.Event{Type: event.MessageUpdated, Data: event.MessageUpdatedData{SessionID: sess.ID, Info: userMsg}})

	return o.generate(ctx, sess, cfg)
}

// Regenerate truncates the transcript back to the most recent user turn
// and reruns generation from it. The user turn itself is preserved.
func (o *Orchestrator) Regenerate(ctx context.Context, sessionID string, cfg config.Settings) (*types.Message, error) {
	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	idx := sess.LastUserIndex()
	if idx == -1 {
		return nil, ErrNoUserTurn
	}
	sess.Messages = sess.Messages[:idx+1]
	sess.UpdatedAt = time.Now().UnixMilli()
	if err := o.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	o.bus.Publish(event.Event{Type: event.SessionUpdated, Data: event.SessionUpdatedData{Info: sess}})

	return o.generate(ctx, sess, cfg)
}

// Stop cancels the session's live generation, if any. The stopped
// attempt finishes with the stop marker; stopping is not an error.
func (o *Orchestrator) Stop(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	att := o.attempts[sessionID]
	if att == nil {
		return false
	}
	att.cancel()
	return true
}

// Active reports whether the session has a live generation.
func (o *Orchestrator) Active(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts[sessionID] != nil
}

// generate runs one attempt against a transcript whose trailing entry
// is the user turn being answered.
func (o *Orchestrator) generate(ctx context.Context, sess *types.Session, cfg config.Settings) (*types.Message, error) {
	if idx := sess.LastUserIndex(); idx != len(sess.Messages)-1 || idx == -1 {
		return nil, ErrLastTurnNotUser
	}
	userMsg := sess.Messages[len(sess.Messages)-1]

	genCtx, attemptID := o.begin(ctx, sess.ID)

	placeholder := &types.Message{
		ID:        ulid.Make().String(),
		Text:      "",
		IsUser:    false,
		Timestamp: time.Now().UnixMilli(),
	}
	sess.Messages = append(sess.Messages, placeholder)
	sess.UpdatedAt = time.Now().UnixMilli()
	if err := o.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	o.bus.Publish(event.Event{Type: event.GenerationStarted, Data: event.GenerationStartedData{
		SessionID: sess.ID,
		MessageID: placeholder.ID,
		AttemptID: attemptID,
	}})

	trimmed := strings.ToLower(strings.TrimSpace(userMsg.Text))
	if strings.HasPrefix(trimmed, "/image") || strings.HasPrefix(trimmed, "/imagine") {
		return o.generateImage(genCtx, sess, placeholder, attemptID, userMsg.Text, cfg)
	}
	return o.generateText(genCtx, sess, placeholder, attemptID, cfg)
}

// generateText runs the streaming text path.
func (o *Orchestrator) generateText(ctx context.Context, sess *types.Session, placeholder *types.Message, attemptID string, cfg config.Settings) (*types.Message, error) {
	history := make([]types.Content, 0, len(sess.Messages)-1)
	for _, m := range sess.Messages[:len(sess.Messages)-1] {
		history = append(history, types.MessageContent(m))
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultModel
	}
	sysInstr := cfg.SystemInstruction
	if sysInstr == "" {
		sysInstr = DefaultSystemInstruction
	}

	req := &types.GenerateRequest{
		History:           history,
		ModelName:         model,
		SystemInstruction: sysInstr,
		UseGrounding:      cfg.UseGrounding,
		UseCodeExecution:  cfg.UseCodeExecution,
	}

	text, err := o.client.StreamGenerate(ctx, req, func(chunk string) {
		if !o.isCurrent(sess.ID, attemptID) {
			// A newer attempt owns the session now; late chunks from
			// this one are dropped.
			return
		}
		placeholder.Text += chunk
		o.bus.PublishSync(event.Event{Type: event.ChunkReceived, Data: event.ChunkReceivedData{
			SessionID: sess.ID,
			MessageID: placeholder.ID,
			Delta:     chunk,
		}})
	})

	return o.finish(sess, placeholder, attemptID, text, err, cfg)
}

// generateImage runs the non-streaming image path. No cancellation
// support here; the call either resolves or fails.
func (o *Orchestrator) generateImage(ctx context.Context, sess *types.Session, placeholder *types.Message, attemptID, userText string, cfg config.Settings) (*types.Message, error) {
	prompt := imageCommandPattern.ReplaceAllString(strings.TrimSpace(userText), "")

	placeholder.Text = imageStatusText
	o.bus.Publish(event.Event{Type: event.MessageUpdated, Data: event.MessageUpdatedData{SessionID: sess.ID, Info: placeholder}})

	img, err := o.client.GenerateImage(ctx, prompt)
	if err != nil {
		return o.finish(sess, placeholder, attemptID, "", err, cfg)
	}

	caption := fmt.Sprintf("Here is your image for: %q", prompt)
	placeholder.Attachment = &types.Attachment{
		MimeType: img.MimeType,
		Preview:  "data:" + img.MimeType + ";base64," + img.Image,
	}
	return o.finish(sess, placeholder, attemptID, caption, nil, cfg)
}

// finish commits one terminal state. Superseded attempts commit nothing:
// the newer attempt owns the session's in-flight message by then.
func (o *Orchestrator) finish(sess *types.Session, placeholder *types.Message, attemptID, text string, genErr error, cfg config.Settings) (*types.Message, error) {
	if !o.end(sess.ID, attemptID) {
		return placeholder, nil
	}
	ctx := context.Background()

	finished := event.GenerationFinishedData{SessionID: sess.ID, MessageID: placeholder.ID}

	switch {
	case genErr == nil:
		placeholder.Text = text
		finished.Text = text
		finished.Speak = cfg.AutoSpeak && text != ""

	case errors.Is(genErr, transport.ErrCancelled):
		placeholder.Text = text + StopMarker
		finished.Text = placeholder.Text
		finished.Cancelled = true

	default:
		var outcome *types.ErrorOutcome
		if !errors.As(genErr, &outcome) {
			outcome = classify.Error(genErr)
		}
		placeholder.Text = outcome.Render()
		placeholder.IsError = true
		finished.Text = placeholder.Text
		finished.Outcome = outcome
		logging.Warn().Str("session", sess.ID).Str("kind", string(outcome.Kind)).Msg("generation failed")
	}

	sess.UpdatedAt = time.Now().UnixMilli()
	if err := o.store.SaveSession(ctx, sess); err != nil {
		logging.Error().Err(err).Str("session", sess.ID).Msg("failed to persist session")
	}

	o.bus.Publish(event.Event{Type: event.MessageUpdated, Data: event.MessageUpdatedData{SessionID: sess.ID, Info: placeholder}})
	o.bus.Publish(event.Event{Type: event.SessionUpdated, Data: event.SessionUpdatedData{Info: sess}})
	o.bus.Publish(event.Event{Type: event.GenerationFinished, Data: finished})

	return placeholder, nil
}

// begin registers a fresh attempt for the session, preempting any live
// one, and returns its cancellable context.
func (o *Orchestrator) begin(ctx context.Context, sessionID string) (context.Context, string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if prev := o.attempts[sessionID]; prev != nil {
		prev.cancel()
	}

	genCtx, cancel := context.WithCancel(ctx)
	att := &attempt{id: uuid.NewString(), cancel: cancel}
	o.attempts[sessionID] = att
	return genCtx, att.id
}

// isCurrent reports whether attemptID still owns the session.
func (o *Orchestrator) isCurrent(sessionID, attemptID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	att := o.attempts[sessionID]
	return att != nil && att.id == attemptID
}

// end clears the attempt if it still owns the session, reporting
// whether it did. A false return means the attempt was superseded.
func (o *Orchestrator) end(sessionID, attemptID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	att := o.attempts[sessionID]
	if att == nil || att.id != attemptID {
		return false
	}
	att.cancel()
	delete(o.attempts, sessionID)
	return true
}

// deriveTitle fills in a title from the first user message while the
// session still carries the default one.
func deriveTitle(sess *types.Session) {
	if sess.Title != types.DefaultTitle {
		return
	}
	for _, m := range sess.Messages {
		if !m.IsUser {
			continue
		}
		runes := []rune(m.Text)
		if len(runes) > titleLimit {
			sess.Title = string(runes[:titleLimit]) + "..."
		} else {
			sess.Title = m.Text
		}
		return
	}
}
