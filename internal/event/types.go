package event

import "github.com/gemchat/gemchat/pkg/types"

// SessionCreatedData is the payload for session.created events.
type SessionCreatedData struct {
	Info *types.Session `json:"info"`
}

// SessionUpdatedData is the payload for session.updated events.
type SessionUpdatedData struct {
	Info *types.Session `json:"info"`
}

// SessionDeletedData is the payload for session.deleted events.
type SessionDeletedData struct {
	SessionID string `json:"sessionID"`
}

// MessageUpdatedData is the payload for message.updated events.
type MessageUpdatedData struct {
	SessionID string         `json:"sessionID"`
	Info      *types.Message `json:"info"`
}

// ChunkReceivedData is the payload for chunk.received events. Delta is
// the newly appended text; consumers observe a monotonically growing
// message, never a retraction.
type ChunkReceivedData struct {
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
	Delta     string `json:"delta"`
}

// GenerationStartedData is the payload for generation.started events.
type GenerationStartedData struct {
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
	AttemptID string `json:"attemptID"`
}

// GenerationFinishedData is the payload for generation.finished events.
// Outcome is nil unless the attempt failed; Cancelled marks an explicit
// user stop, which is terminal but not an error. Speak reports whether
// the auto-speak preference applies to the final text.
type GenerationFinishedData struct {
	SessionID string              `json:"sessionID"`
	MessageID string              `json:"messageID"`
	Text      string              `json:"text"`
	Cancelled bool                `json:"cancelled,omitempty"`
	Outcome   *types.ErrorOutcome `json:"outcome,omitempty"`
	Speak     bool                `json:"speak,omitempty"`
}
